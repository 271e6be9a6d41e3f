package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure VectorizeService implements the interface.
var _ driving.Vectorizer = (*VectorizeService)(nil)

// guardPollInterval is how often a waiting sync re-checks the in-progress
// guard.
const guardPollInterval = 100 * time.Millisecond

// insertBatchSize bounds one backend insert call. The generation-in-progress
// signal is re-checked between batches.
const insertBatchSize = 16

// maxChunkKeywords caps keyword extraction per chunk.
const maxChunkKeywords = 8

// VectorizeService keeps the vector backend in step with the host chat.
// Chunks are identified by content hash, which makes inserts idempotent and
// removes any need for rollback on abort.
type VectorizeService struct {
	chat     driven.ChatSource
	backend  driven.VectorBackend
	meta     driven.MetadataStore
	keywords driven.KeywordExtractor
	settings driving.SettingsService

	// In-progress guard per chat. Concurrent callers poll with a bounded
	// timeout instead of queueing.
	mu     sync.Mutex
	active map[string]bool
}

// NewVectorizeService creates a vectorize service.
// The keywords parameter is optional (can be nil) - chunks are then stored
// without boost keywords.
func NewVectorizeService(
	chat driven.ChatSource,
	backend driven.VectorBackend,
	meta driven.MetadataStore,
	keywords driven.KeywordExtractor,
	settings driving.SettingsService,
) *VectorizeService {
	return &VectorizeService{
		chat:     chat,
		backend:  backend,
		meta:     meta,
		keywords: keywords,
		settings: settings,
		active:   make(map[string]bool),
	}
}

// SyncChat diffs the current chat against the backend and applies inserts
// and deletes.
func (s *VectorizeService) SyncChat(ctx context.Context) (*driving.SyncResult, error) {
	logger.Section("Chat Sync")

	settings, err := s.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	chat, err := s.chat.Chat(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}

	// Preflight: a down backend refuses the run before any work.
	if err := s.backend.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}

	if err := s.acquireGuard(ctx, chat.ID, settings.SyncWaitTimeout); err != nil {
		return nil, err
	}
	defer s.releaseGuard(chat.ID)

	collectionID := domain.ChatCollectionID(chat.ID)
	logger.Debug("Syncing chat %s into collection %s (%d messages)", chat.ID, collectionID, len(chat.Messages))

	saved, err := s.backend.SavedHashes(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list saved hashes: %w", err)
	}
	savedSet := make(map[uint32]bool, len(saved))
	for _, h := range saved {
		savedSet[h] = true
	}

	// Hash the chat's messages. Identical normalised text collapses to one
	// entity, so duplicated messages sync as a single chunk.
	wanted := make(map[uint32]driven.InsertItem, len(chat.Messages))
	for _, m := range chat.Messages {
		if domain.NormaliseText(m.Text) == "" {
			continue
		}
		hash := domain.HashText(m.Text)
		if _, seen := wanted[hash]; !seen {
			wanted[hash] = driven.InsertItem{Hash: hash, Text: m.Text, Index: m.Index}
		}
	}

	result := &driving.SyncResult{ChatID: chat.ID}

	var toInsert []driven.InsertItem
	for hash, item := range wanted {
		if savedSet[hash] {
			result.Unchanged++
			continue
		}
		toInsert = append(toInsert, item)
	}
	var toDelete []uint32
	for _, h := range saved {
		if _, ok := wanted[h]; !ok {
			toDelete = append(toDelete, h)
		}
	}
	logger.Debug("Diff: %d to insert, %d to delete, %d unchanged", len(toInsert), len(toDelete), result.Unchanged)

	// Insert in batches, checking the generation signal each iteration.
	for start := 0; start < len(toInsert); start += insertBatchSize {
		if s.chat.GenerationInProgress(ctx) {
			logger.Warn("Sync aborted: generation in progress (inserted %d so far)", result.Inserted)
			result.Aborted = true
			return result, domain.ErrGenerationInProgress
		}

		end := start + insertBatchSize
		if end > len(toInsert) {
			end = len(toInsert)
		}
		batch := toInsert[start:end]

		if err := s.backend.Insert(ctx, collectionID, batch); err != nil {
			return result, fmt.Errorf("insert batch: %w", err)
		}
		result.Inserted += len(batch)

		s.attachKeywords(ctx, collectionID, batch)
	}

	if len(toDelete) > 0 {
		if err := s.backend.Delete(ctx, collectionID, toDelete); err != nil {
			return result, fmt.Errorf("delete stale hashes: %w", err)
		}
		result.Deleted = len(toDelete)
	}

	logger.Info("Sync complete: %d inserted, %d deleted, %d unchanged", result.Inserted, result.Deleted, result.Unchanged)
	return result, nil
}

// Purge removes the current chat's collection from the backend.
func (s *VectorizeService) Purge(ctx context.Context) error {
	chat, err := s.chat.Chat(ctx)
	if err != nil {
		return fmt.Errorf("get chat: %w", err)
	}
	collectionID := domain.ChatCollectionID(chat.ID)
	logger.Info("Purging collection %s", collectionID)
	if err := s.backend.Purge(ctx, collectionID); err != nil {
		return fmt.Errorf("purge collection: %w", err)
	}
	return nil
}

// attachKeywords extracts and stores boost keywords for freshly inserted
// chunks. Extraction is best-effort - failures leave chunks keywordless.
func (s *VectorizeService) attachKeywords(ctx context.Context, collectionID string, batch []driven.InsertItem) {
	if s.keywords == nil {
		return
	}
	for _, item := range batch {
		extracted, err := s.keywords.Extract(ctx, item.Text, maxChunkKeywords)
		if err != nil {
			logger.Warn("Keyword extraction for chunk %d failed: %v", item.Hash, err)
			continue
		}
		if len(extracted) == 0 {
			continue
		}

		meta, err := s.meta.ChunkMeta(ctx, collectionID, item.Hash)
		if err != nil {
			meta = &domain.ChunkMeta{Hash: item.Hash}
		}
		meta.Keywords = extracted
		if err := s.meta.SaveChunkMeta(ctx, collectionID, meta); err != nil {
			logger.Warn("Saving keywords for chunk %d failed: %v", item.Hash, err)
		}
	}
}

// acquireGuard claims the per-chat sync slot, polling up to timeout when a
// sync is already running.
func (s *VectorizeService) acquireGuard(ctx context.Context, chatID string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		if !s.active[chatID] {
			s.active[chatID] = true
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		if time.Now().After(deadline) {
			logger.Warn("Sync for chat %s blocked: previous run still in progress after %s", chatID, timeout)
			return fmt.Errorf("%w: waited %s", domain.ErrSyncTimeout, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(guardPollInterval):
		}
	}
}

// releaseGuard frees the per-chat sync slot. Always called via defer so the
// slot cannot leak on any exit path.
func (s *VectorizeService) releaseGuard(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, chatID)
}
