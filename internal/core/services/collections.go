package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure CollectionsService implements the interface.
var _ driving.CollectionService = (*CollectionsService)(nil)

// CollectionsService manages collection configurations in the metadata
// store and keeps the backend in step on removal.
type CollectionsService struct {
	meta    driven.MetadataStore
	backend driven.VectorBackend
}

// NewCollectionsService creates a collections service.
// The backend parameter is optional (can be nil) - Remove then only deletes
// configuration.
func NewCollectionsService(meta driven.MetadataStore, backend driven.VectorBackend) *CollectionsService {
	return &CollectionsService{meta: meta, backend: backend}
}

// Add creates a new collection configuration.
func (s *CollectionsService) Add(ctx context.Context, col domain.Collection) error {
	if err := validateCollection(&col); err != nil {
		return err
	}
	if _, err := s.meta.Collection(ctx, col.ID); err == nil {
		return fmt.Errorf("%w: collection %s already exists", domain.ErrInvalidInput, col.ID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check collection: %w", err)
	}

	if err := s.meta.SaveCollection(ctx, &col); err != nil {
		return fmt.Errorf("save collection: %w", err)
	}
	logger.Info("Collection %s added", col.ID)
	return nil
}

// Get retrieves a collection by ID.
func (s *CollectionsService) Get(ctx context.Context, id string) (*domain.Collection, error) {
	col, err := s.meta.Collection(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return col, nil
}

// List returns all configured collections.
func (s *CollectionsService) List(ctx context.Context) ([]domain.Collection, error) {
	cols, err := s.meta.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return cols, nil
}

// Update modifies an existing collection configuration.
func (s *CollectionsService) Update(ctx context.Context, col domain.Collection) error {
	if err := validateCollection(&col); err != nil {
		return err
	}
	if _, err := s.meta.Collection(ctx, col.ID); err != nil {
		return fmt.Errorf("get collection: %w", err)
	}
	if err := s.meta.SaveCollection(ctx, &col); err != nil {
		return fmt.Errorf("save collection: %w", err)
	}
	logger.Info("Collection %s updated", col.ID)
	return nil
}

// Remove deletes a collection's configuration and purges its backend data.
func (s *CollectionsService) Remove(ctx context.Context, id string) error {
	if err := s.meta.DeleteCollection(ctx, id); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if s.backend != nil {
		if err := s.backend.Purge(ctx, id); err != nil {
			logger.Warn("Purging backend data for %s failed: %v", id, err)
		}
	}
	logger.Info("Collection %s removed", id)
	return nil
}

// validateCollection rejects configurations the pipeline cannot honour.
func validateCollection(col *domain.Collection) error {
	if col.ID == "" {
		return fmt.Errorf("%w: collection ID required", domain.ErrInvalidInput)
	}
	if col.Position != nil && !col.Position.IsValid() {
		return fmt.Errorf("%w: unknown position %q", domain.ErrInvalidInput, *col.Position)
	}
	for i := range col.Groups {
		g := &col.Groups[i]
		if g.Name == "" {
			return fmt.Errorf("%w: group name required", domain.ErrInvalidInput)
		}
		if g.Mode != domain.GroupExclusive && g.Mode != domain.GroupInclusive {
			return fmt.Errorf("%w: group %s has unknown mode %q", domain.ErrInvalidInput, g.Name, g.Mode)
		}
		if g.Mandatory && g.Mode != domain.GroupExclusive {
			return fmt.Errorf("%w: group %s: mandatory applies to exclusive groups only", domain.ErrInvalidInput, g.Name)
		}
	}
	if col.Temporal.Enabled {
		switch col.Temporal.Type {
		case domain.TemporalDecay, domain.TemporalNostalgia:
		default:
			return fmt.Errorf("%w: unknown temporal type %q", domain.ErrInvalidInput, col.Temporal.Type)
		}
	}
	return nil
}
