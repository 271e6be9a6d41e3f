// Package yake provides a keyword extractor adapter backed by a YAKE
// extraction server.
package yake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.KeywordExtractor = (*Extractor)(nil)

// Default configuration values.
const (
	DefaultBaseURL           = "http://localhost:5555"
	DefaultTimeout           = 15 * time.Second
	DefaultLanguage          = "en"
	DefaultRequestsPerSecond = 10.0
	DefaultBurst             = 5
)

// Config holds configuration for the YAKE extractor client.
type Config struct {
	// BaseURL is the extraction server base URL (default: http://localhost:5555).
	BaseURL string

	// Language is the YAKE analysis language (default: en).
	Language string

	// Timeout is the request timeout (default: 15s).
	Timeout time.Duration

	// RequestsPerSecond throttles extraction calls during bulk sync.
	RequestsPerSecond float64

	// Burst is the throttle burst size.
	Burst int
}

// Extractor extracts keywords via the YAKE server's /extract endpoint.
type Extractor struct {
	client   *http.Client
	baseURL  string
	language string
	limiter  *rate.Limiter
}

// extractRequest is the YAKE server request format.
type extractRequest struct {
	Text        string `json:"text"`
	Language    string `json:"language"`
	MaxKeywords int    `json:"maxKeywords"`
}

// extractResponse is the YAKE server response format.
type extractResponse struct {
	Keywords []struct {
		Text  string  `json:"text"`
		Score float64 `json:"score"`
	} `json:"keywords"`
	Count int `json:"count"`
}

// NewExtractor creates a new YAKE extractor client.
func NewExtractor(cfg Config) *Extractor {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
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

	return &Extractor{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:  cfg.BaseURL,
		language: cfg.Language,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Extract returns up to maxKeywords keywords for the text. YAKE scores are
// inverse-ranked (lower is more relevant); they are mapped onto boost
// weights in [1, 2] so that more relevant keywords boost harder.
func (e *Extractor) Extract(ctx context.Context, text string, maxKeywords int) ([]domain.Keyword, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqBody := extractRequest{
		Text:        text,
		Language:    e.language,
		MaxKeywords: maxKeywords,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		e.baseURL+"/extract",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("yake error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("yake error (status %d): %s", resp.StatusCode, string(body))
	}

	var extractResp extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&extractResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	keywords := make([]domain.Keyword, 0, len(extractResp.Keywords))
	for _, kw := range extractResp.Keywords {
		if kw.Text == "" {
			continue
		}
		keywords = append(keywords, domain.Keyword{
			Text:   kw.Text,
			Weight: weightFromScore(kw.Score),
		})
	}
	return keywords, nil
}

// weightFromScore maps a YAKE relevance score onto a boost weight.
// Score 0 (most relevant) becomes 2.0, score >= 1 becomes 1.0.
func weightFromScore(score float64) float64 {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return 1 + (1 - score)
}

// Ping checks the server's /health endpoint.
func (e *Extractor) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("yake: failed to create ping request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("yake: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yake: server returned status %d", resp.StatusCode)
	}
	return nil
}
