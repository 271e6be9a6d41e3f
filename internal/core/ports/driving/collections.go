package driving

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// CollectionService manages collection configurations.
type CollectionService interface {
	// Add creates a new collection configuration.
	Add(ctx context.Context, col domain.Collection) error

	// Get retrieves a collection by ID.
	Get(ctx context.Context, id string) (*domain.Collection, error)

	// List returns all configured collections.
	List(ctx context.Context) ([]domain.Collection, error)

	// Update modifies an existing collection configuration.
	Update(ctx context.Context, col domain.Collection) error

	// Remove deletes a collection's configuration and its backend data.
	Remove(ctx context.Context, id string) error
}
