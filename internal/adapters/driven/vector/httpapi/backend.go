// Package httpapi provides the VectorBackend adapter for the HTTP vector
// store collaborator. The backend owns embedding and similarity search;
// this client only moves hashes, text and scores across the wire.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.VectorBackend = (*Backend)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8686"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the vector backend client.
type Config struct {
	// BaseURL is the vector store base URL (default: http://localhost:8686).
	BaseURL string

	// Timeout is the request timeout (default: 60s; inserts embed server-side).
	Timeout time.Duration
}

// Backend talks to the vector store's collection-scoped REST API.
type Backend struct {
	client  *http.Client
	baseURL string
}

// queryRequest is the query endpoint request format. Vector is optional;
// when present the backend skips its own embedding pass.
type queryRequest struct {
	Text   string    `json:"text"`
	TopK   int       `json:"topK"`
	Vector []float32 `json:"vector,omitempty"`
}

// recordPayload is the wire form of one stored chunk.
type recordPayload struct {
	Hash  uint32  `json:"hash"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
	Index int     `json:"index"`
}

type queryResponse struct {
	Hashes  []uint32        `json:"hashes"`
	Records []recordPayload `json:"records"`
}

type insertRequest struct {
	Items []insertPayload `json:"items"`
}

type insertPayload struct {
	Hash  uint32 `json:"hash"`
	Text  string `json:"text"`
	Index int    `json:"index"`
}

type hashesRequest struct {
	Hashes []uint32 `json:"hashes"`
}

type hashesResponse struct {
	Hashes []uint32 `json:"hashes"`
}

type fetchResponse struct {
	Records []recordPayload `json:"records"`
}

// NewBackend creates a new vector backend client.
func NewBackend(cfg Config) *Backend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Backend{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
	}
}

// Query runs a similarity search over one collection.
func (b *Backend) Query(ctx context.Context, collectionID, text string, topK int, vector []float32) (*driven.QueryResult, error) {
	reqBody := queryRequest{Text: text, TopK: topK, Vector: vector}

	var queryResp queryResponse
	if err := b.post(ctx, b.collectionURL(collectionID, "query"), reqBody, &queryResp); err != nil {
		return nil, err
	}

	result := &driven.QueryResult{
		Hashes:  queryResp.Hashes,
		Records: make([]driven.ChunkRecord, 0, len(queryResp.Records)),
	}
	for _, rec := range queryResp.Records {
		result.Records = append(result.Records, driven.ChunkRecord{
			Hash:  rec.Hash,
			Score: rec.Score,
			Text:  rec.Text,
			Index: rec.Index,
		})
	}
	return result, nil
}

// Insert stores new chunks. The backend embeds them server-side and insertion
// is idempotent by hash.
func (b *Backend) Insert(ctx context.Context, collectionID string, items []driven.InsertItem) error {
	if len(items) == 0 {
		return nil
	}
	reqBody := insertRequest{Items: make([]insertPayload, 0, len(items))}
	for _, item := range items {
		reqBody.Items = append(reqBody.Items, insertPayload{
			Hash:  item.Hash,
			Text:  item.Text,
			Index: item.Index,
		})
	}
	return b.post(ctx, b.collectionURL(collectionID, "insert"), reqBody, nil)
}

// Delete removes the given hashes from a collection.
func (b *Backend) Delete(ctx context.Context, collectionID string, hashes []uint32) error {
	if len(hashes) == 0 {
		return nil
	}
	return b.post(ctx, b.collectionURL(collectionID, "delete"), hashesRequest{Hashes: hashes}, nil)
}

// Purge drops an entire collection.
func (b *Backend) Purge(ctx context.Context, collectionID string) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodDelete,
		b.baseURL+"/collections/"+url.PathEscape(collectionID),
		http.NoBody,
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return b.do(req, nil)
}

// SavedHashes lists every hash currently stored in a collection.
func (b *Backend) SavedHashes(ctx context.Context, collectionID string) ([]uint32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.collectionURL(collectionID, "hashes"), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var resp hashesResponse
	if err := b.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Hashes, nil
}

// Fetch retrieves stored chunks by hash; unknown hashes are omitted from the
// result rather than producing an error.
func (b *Backend) Fetch(ctx context.Context, collectionID string, hashes []uint32) ([]driven.ChunkRecord, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	var fetchResp fetchResponse
	if err := b.post(ctx, b.collectionURL(collectionID, "fetch"), hashesRequest{Hashes: hashes}, &fetchResp); err != nil {
		return nil, err
	}

	records := make([]driven.ChunkRecord, 0, len(fetchResp.Records))
	for _, rec := range fetchResp.Records {
		records = append(records, driven.ChunkRecord{
			Hash:  rec.Hash,
			Score: rec.Score,
			Text:  rec.Text,
			Index: rec.Index,
		})
	}
	return records, nil
}

// Ping checks the store's /health endpoint.
func (b *Backend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("vector store: failed to create ping request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("vector store: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vector store: server returned status %d", resp.StatusCode)
	}
	return nil
}

func (b *Backend) collectionURL(collectionID, op string) string {
	return b.baseURL + "/collections/" + url.PathEscape(collectionID) + "/" + op
}

// post JSON-encodes body, sends it, and decodes the response into out when
// out is non-nil.
func (b *Backend) post(ctx context.Context, endpoint string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return b.do(req, out)
}

func (b *Backend) do(req *http.Request, out any) error {
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("vector store error (status %d): failed to read response", resp.StatusCode)
		}
		return fmt.Errorf("vector store error (status %d): %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
