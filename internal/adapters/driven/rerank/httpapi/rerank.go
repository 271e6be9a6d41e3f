// Package httpapi provides a rerank service adapter for an HTTP
// cross-encoder collaborator.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure RerankService implements the interface.
var _ driven.RerankService = (*RerankService)(nil)

// Default configuration values.
const (
	DefaultBaseURL           = "http://localhost:8787"
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 4.0
	DefaultBurst             = 2
)

// Config holds configuration for the rerank client.
type Config struct {
	// BaseURL is the rerank server base URL (default: http://localhost:8787).
	BaseURL string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// RequestsPerSecond throttles rerank calls.
	RequestsPerSecond float64

	// Burst is the throttle burst size.
	Burst int
}

// RerankService scores query/document pairs via the server's /rerank
// endpoint.
type RerankService struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// rerankRequest is the rerank server request format.
type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopK      int      `json:"top_k"`
}

// rerankResponse is the rerank server response format.
type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// NewRerankService creates a new rerank client.
func NewRerankService(cfg Config) *RerankService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst == 0 {
		cfg.Burst = DefaultBurst
	}

	return &RerankService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Rerank scores documents against the query. Results reference documents by
// index and come back highest score first.
func (s *RerankService) Rerank(ctx context.Context, query string, documents []string, topK int) ([]driven.RankedDocument, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqBody := rerankRequest{
		Query:     query,
		Documents: documents,
		TopK:      topK,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/rerank",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("rerank error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("rerank error (status %d): %s", resp.StatusCode, string(body))
	}

	var rerankResp rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rerankResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	ranked := make([]driven.RankedDocument, 0, len(rerankResp.Results))
	for _, r := range rerankResp.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("rerank result index %d out of range", r.Index)
		}
		ranked = append(ranked, driven.RankedDocument{Index: r.Index, Score: r.Score})
	}
	return ranked, nil
}

// Ping checks the server's /health endpoint.
func (s *RerankService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("rerank: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("rerank: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rerank: server returned status %d", resp.StatusCode)
	}
	return nil
}
