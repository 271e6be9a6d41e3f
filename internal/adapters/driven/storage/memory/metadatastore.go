// Package memory provides in-memory implementations of driven port
// interfaces, used by tests and embedding hosts that do not need
// persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

// Ensure MetadataStore implements the interface.
var _ driven.MetadataStore = (*MetadataStore)(nil)

// MetadataStore is an in-memory implementation of driven.MetadataStore.
type MetadataStore struct {
	mu          sync.RWMutex
	collections map[string]domain.Collection
	chunkMeta   map[string]map[uint32]domain.ChunkMeta
	counters    map[string]map[uint32]domain.ActivationCounter
}

// NewMetadataStore creates a new in-memory metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		collections: make(map[string]domain.Collection),
		chunkMeta:   make(map[string]map[uint32]domain.ChunkMeta),
		counters:    make(map[string]map[uint32]domain.ActivationCounter),
	}
}

// Collection retrieves one collection's configuration.
func (s *MetadataStore) Collection(_ context.Context, id string) (*domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &col, nil
}

// SaveCollection creates or replaces a collection's configuration.
func (s *MetadataStore) SaveCollection(_ context.Context, col *domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[col.ID] = *col
	return nil
}

// DeleteCollection removes a collection's configuration and chunk records.
func (s *MetadataStore) DeleteCollection(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, id)
	delete(s.chunkMeta, id)
	return nil
}

// ListCollections returns every configured collection, ordered by ID.
func (s *MetadataStore) ListCollections(_ context.Context) ([]domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Collection, 0, len(s.collections))
	for _, col := range s.collections {
		result = append(result, col)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ChunkMeta retrieves one chunk's stored metadata.
func (s *MetadataStore) ChunkMeta(_ context.Context, collectionID string, hash uint32) (*domain.ChunkMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.chunkMeta[collectionID][hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &meta, nil
}

// SaveChunkMeta creates or replaces a chunk's metadata record.
func (s *MetadataStore) SaveChunkMeta(_ context.Context, collectionID string, meta *domain.ChunkMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chunkMeta[collectionID] == nil {
		s.chunkMeta[collectionID] = make(map[uint32]domain.ChunkMeta)
	}
	s.chunkMeta[collectionID][meta.Hash] = *meta
	return nil
}

// ChunkMetaAll returns every chunk record of a collection keyed by hash.
func (s *MetadataStore) ChunkMetaAll(_ context.Context, collectionID string) (map[uint32]domain.ChunkMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint32]domain.ChunkMeta, len(s.chunkMeta[collectionID]))
	for hash, meta := range s.chunkMeta[collectionID] {
		out[hash] = meta
	}
	return out, nil
}

// ActivationCounters loads the persisted activation history for a chat.
func (s *MetadataStore) ActivationCounters(_ context.Context, chatID string) (map[uint32]domain.ActivationCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint32]domain.ActivationCounter, len(s.counters[chatID]))
	for hash, counter := range s.counters[chatID] {
		out[hash] = counter
	}
	return out, nil
}

// SaveActivationCounters persists a chat's activation history.
func (s *MetadataStore) SaveActivationCounters(_ context.Context, chatID string, counters map[uint32]domain.ActivationCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counters[chatID] == nil {
		s.counters[chatID] = make(map[uint32]domain.ActivationCounter)
	}
	for hash, counter := range counters {
		s.counters[chatID][hash] = counter
	}
	return nil
}

// Close releases resources.
func (s *MetadataStore) Close() error {
	return nil
}
