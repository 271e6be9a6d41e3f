package driven

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// MetadataStore persists everything about collections and chunks that the
// vector backend does not hold: activation, temporal and group configuration
// per collection, per-chunk overrides, and activation-history counters.
type MetadataStore interface {
	// Collection retrieves one collection's configuration.
	// Returns domain.ErrNotFound when the collection is unknown.
	Collection(ctx context.Context, id string) (*domain.Collection, error)

	// SaveCollection creates or replaces a collection's configuration.
	SaveCollection(ctx context.Context, col *domain.Collection) error

	// DeleteCollection removes a collection's configuration.
	DeleteCollection(ctx context.Context, id string) error

	// ListCollections returns every configured collection.
	ListCollections(ctx context.Context) ([]domain.Collection, error)

	// ChunkMeta retrieves one chunk's stored metadata.
	// Returns domain.ErrNotFound when no record exists.
	ChunkMeta(ctx context.Context, collectionID string, hash uint32) (*domain.ChunkMeta, error)

	// SaveChunkMeta creates or replaces a chunk's metadata record.
	SaveChunkMeta(ctx context.Context, collectionID string, meta *domain.ChunkMeta) error

	// ChunkMetaAll returns every chunk record of a collection keyed by hash.
	ChunkMetaAll(ctx context.Context, collectionID string) (map[uint32]domain.ChunkMeta, error)

	// ActivationCounters loads the persisted activation history for a chat.
	ActivationCounters(ctx context.Context, chatID string) (map[uint32]domain.ActivationCounter, error)

	// SaveActivationCounters persists a chat's activation history.
	SaveActivationCounters(ctx context.Context, chatID string, counters map[uint32]domain.ActivationCounter) error

	// Close releases resources.
	Close() error
}
