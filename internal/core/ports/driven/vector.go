package driven

import "context"

// VectorBackend is the external vector database holding chunk content keyed
// by content hash, partitioned into named collections. Scores returned by
// Query are similarities normalised to [0,1].
type VectorBackend interface {
	// Query runs a similarity search over one collection. When vector is
	// non-nil the backend uses it instead of embedding text itself.
	Query(ctx context.Context, collectionID, text string, topK int, vector []float32) (*QueryResult, error)

	// Insert stores new chunk items. Inserting an existing hash is a no-op,
	// which makes sync idempotent.
	Insert(ctx context.Context, collectionID string, items []InsertItem) error

	// Delete removes the given hashes from a collection.
	Delete(ctx context.Context, collectionID string, hashes []uint32) error

	// Purge removes a collection entirely.
	Purge(ctx context.Context, collectionID string) error

	// SavedHashes lists every hash currently stored in a collection.
	SavedHashes(ctx context.Context, collectionID string) ([]uint32, error)

	// Fetch retrieves stored items by hash without scoring. Hashes that do
	// not exist are simply absent from the result.
	Fetch(ctx context.Context, collectionID string, hashes []uint32) ([]ChunkRecord, error)

	// Ping validates the backend is reachable with a lightweight request.
	Ping(ctx context.Context) error
}

// QueryResult is one collection's similarity search response.
type QueryResult struct {
	// Hashes are the matched chunk hashes, best first.
	Hashes []uint32

	// Records carries per-hash score, text and origin index.
	Records []ChunkRecord
}

// ChunkRecord is the backend's stored form of one chunk.
type ChunkRecord struct {
	Hash uint32

	// Score is the similarity in [0,1]; zero for unscored Fetch results.
	Score float64

	Text string

	// Index is the originating message index, or -1 for non-chat content.
	Index int
}

// InsertItem is one chunk handed to the backend during sync.
type InsertItem struct {
	Hash  uint32
	Text  string
	Index int
}
