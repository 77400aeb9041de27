// Package fiscalia provides a Go client for the fiscalia question API.
package fiscalia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 60 * time.Second

// Client talks to a fiscalia API server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("fiscalia: base URL required")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Source is one cited document in an answer.
type Source struct {
	Title string  `json:"titre"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Answer is the server's response to a question.
type Answer struct {
	Question  string   `json:"question"`
	Agent     string   `json:"agent_utilise"`
	Text      string   `json:"reponse"`
	Sources   []Source `json:"sources"`
	Method    string   `json:"methode_recherche"`
	AvgScore  float64  `json:"score_moyen"`
	BestScore float64  `json:"meilleur_score"`
	Status    string   `json:"statut"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fiscalia: API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Ask submits a question and returns the routed answer.
func (c *Client) Ask(ctx context.Context, question string) (*Answer, error) {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return nil, fmt.Errorf("fiscalia: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/question", bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("fiscalia: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fiscalia: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var answer Answer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("fiscalia: decode response: %w", err)
	}
	return &answer, nil
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health reports server component health. A degraded server still
// returns a status, not an error.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("fiscalia: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fiscalia: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, decodeAPIError(resp)
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("fiscalia: decode response: %w", err)
	}
	return &status, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = resp.Status
	}
	return apiErr
}
