package embcache

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
)

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 7}, nil
}

func newTestCache(t *testing.T, inner domain.Embedder) *Cache {
	t.Helper()
	c, err := New(inner, 16, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestEmbedDocument_MemoizedByID(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.1, 0.2, 0.3}}
	c := newTestCache(t, inner)
	ctx := context.Background()

	first, err := c.EmbedDocument(ctx, "F1", "TVA TVA TVA La TVA est...")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.EmbedDocument(ctx, "F1", "TVA TVA TVA La TVA est...")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", inner.calls)
	}
	if len(first) != 3 || len(second) != 3 || first[0] != second[0] {
		t.Fatalf("expected identical vectors, got %v and %v", first, second)
	}
}

func TestEmbedDocument_ReturnsCopy(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.1, 0.2}}
	c := newTestCache(t, inner)
	ctx := context.Background()

	first, _ := c.EmbedDocument(ctx, "F1", "text")
	first[0] = 99

	second, _ := c.EmbedDocument(ctx, "F1", "text")
	if second[0] == 99 {
		t.Fatal("cached vector was mutated through a returned slice")
	}
}

func TestEmbedDocument_FailureNotCached(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("provider down")}
	c := newTestCache(t, inner)
	ctx := context.Background()

	if _, err := c.EmbedDocument(ctx, "F1", "text"); err == nil {
		t.Fatal("expected error from provider")
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after failure, got %d entries", c.Len())
	}

	inner.err = nil
	inner.vec = []float32{0.5}
	if _, err := c.EmbedDocument(ctx, "F1", "text"); err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected retry to hit the provider, got %d calls", inner.calls)
	}
}

func TestPurge_InvalidatesEverything(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.1}}
	c := newTestCache(t, inner)
	ctx := context.Background()

	_, _ = c.EmbedDocument(ctx, "F1", "text")
	_, _ = c.EmbedDocument(ctx, "F2", "text")
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}

	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after purge, got %d entries", c.Len())
	}

	_, _ = c.EmbedDocument(ctx, "F1", "text")
	if inner.calls != 3 {
		t.Fatalf("expected recompute after purge, got %d calls", inner.calls)
	}
}
