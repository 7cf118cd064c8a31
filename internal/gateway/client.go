package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// UpstreamError is returned when the embedding service answers with a
// non-2xx status. Body is the response body as received.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(e.Body), &payload) == nil && payload.Error != "" {
		return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, payload.Error)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// IsUpstreamError reports whether err is an *UpstreamError.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// EmbeddingResponse is the embedding service's answer for one text.
type EmbeddingResponse struct {
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding"`
	HasVector bool      `json:"has_vector"`
}

// HealthResponse describes the embedding service's loaded model.
type HealthResponse struct {
	Status     string `json:"status"`
	Model      string `json:"model"`
	VectorSize int    `json:"vector_size"`
}

// SimilarityResponse is the similarity of two texts.
type SimilarityResponse struct {
	Text1      string  `json:"text1"`
	Text2      string  `json:"text2"`
	Similarity float64 `json:"similarity"`
}

// WordSimilarity is one row of a batch similarity answer.
type WordSimilarity struct {
	Word       string  `json:"word"`
	Similarity float64 `json:"similarity"`
}

// BatchSimilarityResponse ranks words by similarity to a target, highest first.
type BatchSimilarityResponse struct {
	Target       string           `json:"target"`
	Similarities []WordSimilarity `json:"similarities"`
}

// Client calls the embedding service directly or through the word cloud's
// proxy prefix.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a Client for the service at baseURL, for example
// "http://localhost:5000" or "http://localhost:3000/spacy".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embedding returns the vector for text.
func (c *Client) Embedding(ctx context.Context, text string) (*EmbeddingResponse, error) {
	var resp EmbeddingResponse
	if err := c.post(ctx, "/embedding", map[string]string{"text": text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Similarity returns the similarity of two texts.
func (c *Client) Similarity(ctx context.Context, text1, text2 string) (*SimilarityResponse, error) {
	var resp SimilarityResponse
	body := map[string]string{"text1": text1, "text2": text2}
	if err := c.post(ctx, "/similarity", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BatchSimilarity ranks words by similarity to target.
func (c *Client) BatchSimilarity(ctx context.Context, target string, words []string) (*BatchSimilarityResponse, error) {
	var resp BatchSimilarityResponse
	body := map[string]any{"target": target, "words": words}
	if err := c.post(ctx, "/batch_similarity", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health reports the service status and model.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var resp HealthResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach embedding service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
