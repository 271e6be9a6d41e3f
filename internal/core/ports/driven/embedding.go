package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// This is an optional service - the vector backend embeds server-side, and
// when an EmbeddingService is configured the pipeline passes a precomputed
// query vector to VectorBackend.Query instead.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
