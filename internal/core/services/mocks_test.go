package services

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
)

// --- Mock implementations ---

// mockBackend implements driven.VectorBackend for testing.
type mockBackend struct {
	results map[string]*driven.QueryResult
	records map[string]map[uint32]driven.ChunkRecord
	saved   map[string][]uint32

	queryErr  error
	queryErrs map[string]error
	fetchErr  error
	insertErr error
	deleteErr error
	pingErr   error

	inserted map[string][]driven.InsertItem
	deleted  map[string][]uint32
	purged   []string
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		results:   make(map[string]*driven.QueryResult),
		queryErrs: make(map[string]error),
		records:   make(map[string]map[uint32]driven.ChunkRecord),
		saved:     make(map[string][]uint32),
		inserted:  make(map[string][]driven.InsertItem),
		deleted:   make(map[string][]uint32),
	}
}

func (m *mockBackend) Query(_ context.Context, collectionID, _ string, topK int, _ []float32) (*driven.QueryResult, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if err, ok := m.queryErrs[collectionID]; ok {
		return nil, err
	}
	res, ok := m.results[collectionID]
	if !ok {
		return &driven.QueryResult{}, nil
	}
	if topK < len(res.Records) {
		trimmed := &driven.QueryResult{Hashes: res.Hashes[:topK], Records: res.Records[:topK]}
		return trimmed, nil
	}
	return res, nil
}

func (m *mockBackend) Insert(_ context.Context, collectionID string, items []driven.InsertItem) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted[collectionID] = append(m.inserted[collectionID], items...)
	return nil
}

func (m *mockBackend) Delete(_ context.Context, collectionID string, hashes []uint32) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted[collectionID] = append(m.deleted[collectionID], hashes...)
	return nil
}

func (m *mockBackend) Purge(_ context.Context, collectionID string) error {
	m.purged = append(m.purged, collectionID)
	return nil
}

func (m *mockBackend) SavedHashes(_ context.Context, collectionID string) ([]uint32, error) {
	return m.saved[collectionID], nil
}

func (m *mockBackend) Fetch(_ context.Context, collectionID string, hashes []uint32) ([]driven.ChunkRecord, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var out []driven.ChunkRecord
	for _, h := range hashes {
		if rec, ok := m.records[collectionID][h]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockBackend) Ping(_ context.Context) error {
	return m.pingErr
}

// mockMeta implements driven.MetadataStore for testing.
type mockMeta struct {
	collections map[string]domain.Collection
	chunkMeta   map[string]map[uint32]domain.ChunkMeta
	counters    map[string]map[uint32]domain.ActivationCounter

	listErr error
	metaErr error
	saveErr error
}

func newMockMeta() *mockMeta {
	return &mockMeta{
		collections: make(map[string]domain.Collection),
		chunkMeta:   make(map[string]map[uint32]domain.ChunkMeta),
		counters:    make(map[string]map[uint32]domain.ActivationCounter),
	}
}

func (m *mockMeta) addCollection(col domain.Collection) {
	m.collections[col.ID] = col
}

func (m *mockMeta) setChunkMeta(collectionID string, meta domain.ChunkMeta) {
	if m.chunkMeta[collectionID] == nil {
		m.chunkMeta[collectionID] = make(map[uint32]domain.ChunkMeta)
	}
	m.chunkMeta[collectionID][meta.Hash] = meta
}

func (m *mockMeta) Collection(_ context.Context, id string) (*domain.Collection, error) {
	col, ok := m.collections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &col, nil
}

func (m *mockMeta) SaveCollection(_ context.Context, col *domain.Collection) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.collections[col.ID] = *col
	return nil
}

func (m *mockMeta) DeleteCollection(_ context.Context, id string) error {
	delete(m.collections, id)
	return nil
}

func (m *mockMeta) ListCollections(_ context.Context) ([]domain.Collection, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Collection, 0, len(m.collections))
	for _, col := range m.collections {
		out = append(out, col)
	}
	return out, nil
}

func (m *mockMeta) ChunkMeta(_ context.Context, collectionID string, hash uint32) (*domain.ChunkMeta, error) {
	if meta, ok := m.chunkMeta[collectionID][hash]; ok {
		return &meta, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockMeta) SaveChunkMeta(_ context.Context, collectionID string, meta *domain.ChunkMeta) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.setChunkMeta(collectionID, *meta)
	return nil
}

func (m *mockMeta) ChunkMetaAll(_ context.Context, collectionID string) (map[uint32]domain.ChunkMeta, error) {
	if m.metaErr != nil {
		return nil, m.metaErr
	}
	out := make(map[uint32]domain.ChunkMeta, len(m.chunkMeta[collectionID]))
	for hash, meta := range m.chunkMeta[collectionID] {
		out[hash] = meta
	}
	return out, nil
}

func (m *mockMeta) ActivationCounters(_ context.Context, chatID string) (map[uint32]domain.ActivationCounter, error) {
	return m.counters[chatID], nil
}

func (m *mockMeta) SaveActivationCounters(_ context.Context, chatID string, counters map[uint32]domain.ActivationCounter) error {
	m.counters[chatID] = counters
	return nil
}

func (m *mockMeta) Close() error {
	return nil
}

// mockChatSource implements driven.ChatSource for testing.
type mockChatSource struct {
	chat       *domain.Chat
	chatErr    error
	generating bool
}

func (m *mockChatSource) Chat(_ context.Context) (*domain.Chat, error) {
	if m.chatErr != nil {
		return nil, m.chatErr
	}
	return m.chat, nil
}

func (m *mockChatSource) GenerationInProgress(_ context.Context) bool {
	return m.generating
}

// mockSink implements driven.PromptSink for testing.
type mockSink struct {
	segments  []domain.PromptSegment
	injectErr error

	// readback overrides what Injected returns; nil echoes segments.
	readback []domain.PromptSegment
}

func (m *mockSink) Inject(_ context.Context, segments []domain.PromptSegment) error {
	if m.injectErr != nil {
		return m.injectErr
	}
	m.segments = segments
	return nil
}

func (m *mockSink) Injected(_ context.Context) ([]domain.PromptSegment, error) {
	if m.readback != nil {
		return m.readback, nil
	}
	return m.segments, nil
}

// mockRerank implements driven.RerankService for testing.
type mockRerank struct {
	results []driven.RankedDocument
	err     error
	calls   int
}

func (m *mockRerank) Rerank(_ context.Context, _ string, _ []string, _ int) ([]driven.RankedDocument, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockRerank) Ping(_ context.Context) error {
	return nil
}

// mockKeywordExtractor implements driven.KeywordExtractor for testing.
type mockKeywordExtractor struct {
	keywords []domain.Keyword
	err      error
}

func (m *mockKeywordExtractor) Extract(_ context.Context, _ string, _ int) ([]domain.Keyword, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.keywords, nil
}

func (m *mockKeywordExtractor) Ping(_ context.Context) error {
	return nil
}

// mockConfig implements driven.ConfigStore in memory.
type mockConfig struct {
	values  map[string]any
	saveErr error
	saves   int
}

func newMockConfig() *mockConfig {
	return &mockConfig{values: make(map[string]any)}
}

func (m *mockConfig) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfig) GetString(key string) string {
	if s, ok := m.values[key].(string); ok {
		return s
	}
	return ""
}

func (m *mockConfig) GetInt(key string) int {
	if n, ok := m.values[key].(int); ok {
		return n
	}
	return 0
}

func (m *mockConfig) GetFloat(key string) float64 {
	switch n := m.values[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func (m *mockConfig) GetBool(key string) bool {
	if b, ok := m.values[key].(bool); ok {
		return b
	}
	return false
}

func (m *mockConfig) Set(key string, value any) error {
	m.values[key] = value
	return nil
}

func (m *mockConfig) Save() error {
	m.saves++
	return m.saveErr
}

func (m *mockConfig) Load() error { return nil }

func (m *mockConfig) Path() string { return "/tmp/recall-test.toml" }

// stubSettings implements driving.SettingsService with a fixed value.
type stubSettings struct {
	settings domain.Settings
}

var _ driving.SettingsService = (*stubSettings)(nil)

func (s *stubSettings) Get() (*domain.Settings, error) {
	copied := s.settings
	return &copied, nil
}

func (s *stubSettings) Save(*domain.Settings) error { return nil }

func (s *stubSettings) GetDefaults() domain.Settings { return domain.DefaultSettings() }

func (s *stubSettings) Validate(*domain.Settings) error { return nil }
