package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authHandler(keys []string) http.Handler {
	return BearerAuthMiddleware(keys)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestBearerAuth_DisabledWithoutKeys(t *testing.T) {
	rec := httptest.NewRecorder()
	authHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/question", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through without keys, got %d", rec.Code)
	}
}

func TestBearerAuth_ValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/question", nil)
	req.Header.Set("Authorization", "Bearer secret")

	rec := httptest.NewRecorder()
	authHandler([]string{"secret"}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBearerAuth_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic secret"},
		{"unknown token", "Bearer other"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/question", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			authHandler([]string{"secret"}).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestBearerAuth_ExemptPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		authHandler([]string{"secret"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusOK {
			t.Errorf("path %s: expected exemption, got %d", path, rec.Code)
		}
	}
}
