// Package embeddings is the Embeddings component: an HTTP client for the
// out-of-scope embedding service, vector storage, cosine similarity search,
// and rate-limited backfill of decisions missing a vector.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient is a minimal client abstraction so tests can inject a fake
// transport without a live embedding service.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the embedding service's /api/embeddings endpoint.
type Client struct {
	baseURL string
	model   string
	http    HTTPClient
}

// NewClient builds a Client. If httpClient is nil, a stdlib *http.Client is
// used.
func NewClient(baseURL, model string, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: baseURL, model: model, http: httpClient}
}

// HealthResult is the outcome of a health probe.
type HealthResult struct {
	Available bool
	Reason    string
}

// Health performs one short-timeout probe against the embedding service.
func (c *Client) Health(ctx context.Context) HealthResult {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		return HealthResult{Available: false, Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return HealthResult{Available: false, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return HealthResult{Available: false, Reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return HealthResult{Available: true}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed computes an embedding for text. Returns (nil, nil) on any failure,
// per the spec's "degrade gracefully" error handling design: embedding
// failures are logged by the caller, never surfaced as a hard error.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, nil
	}
	return out.Embedding, nil
}

// Model returns the embedding model id this client is configured for.
func (c *Client) Model() string {
	return c.model
}
