package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
)

func testSettings() domain.Settings {
	s := domain.DefaultSettings()
	s.ScoreThreshold = 0
	s.MinChatLength = 2
	return s
}

func testChat(texts ...string) *domain.Chat {
	msgs := make([]domain.Message, len(texts))
	for i, text := range texts {
		msgs[i] = domain.Message{Index: i, Speaker: "Alice", Text: text}
	}
	return &domain.Chat{ID: "chat-1", CharacterID: "alice", Messages: msgs}
}

func alwaysActiveCollection(id string) domain.Collection {
	return domain.Collection{
		ID:         id,
		Enabled:    true,
		Activation: domain.ActivationConfig{AlwaysActive: true},
	}
}

type pipelineFixture struct {
	chat    *mockChatSource
	sink    *mockSink
	meta    *mockMeta
	backend *mockBackend
	rerank  *mockRerank
	svc     *PipelineService
}

func newPipelineFixture(settings domain.Settings) *pipelineFixture {
	f := &pipelineFixture{
		chat:    &mockChatSource{},
		sink:    &mockSink{},
		meta:    newMockMeta(),
		backend: newMockBackend(),
		rerank:  &mockRerank{},
	}
	retrieval := NewRetrievalService(f.backend, f.meta, nil)
	f.svc = NewPipelineService(f.chat, f.sink, f.meta, f.backend, retrieval, f.rerank, &stubSettings{settings: settings})
	return f
}

func TestPipeline_InjectsRetrievedChunks(t *testing.T) {
	f := newPipelineFixture(testSettings())
	f.chat.chat = testChat("hello there", "tell me about the dragon")
	f.meta.addCollection(alwaysActiveCollection("lore"))
	f.backend.results["lore"] = &driven.QueryResult{
		Hashes: []uint32{1, 2},
		Records: []driven.ChunkRecord{
			{Hash: 1, Score: 0.9, Text: "the dragon guards the mountain", Index: -1},
			{Hash: 2, Score: 0.6, Text: "villagers fear the beast", Index: -1},
		},
	}

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeInjected, report.Outcome)
	assert.NotEmpty(t, report.RunID)
	assert.True(t, report.Verified)
	require.Len(t, report.Segments, 1)
	assert.Equal(t, domain.PositionInChat, report.Segments[0].Position)
	assert.Contains(t, report.Segments[0].Content, "the dragon guards the mountain")
	assert.Equal(t, report.Segments, f.sink.segments)

	// Every stage is accounted for in the audit trail.
	names := make([]string, len(report.Stages))
	for i, st := range report.Stages {
		names[i] = st.Name
	}
	assert.Equal(t, []string{"activation", "retrieval", "threshold", "temporal", "conditions", "groups", "dedup"}, names)
}

func TestPipeline_SkipsWithoutChat(t *testing.T) {
	f := newPipelineFixture(testSettings())
	f.chat.chatErr = domain.ErrNoChat

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, report.Outcome)
	assert.Equal(t, "no chat selected", report.Reason)
	assert.Empty(t, f.sink.segments)
}

func TestPipeline_SkipsShortChat(t *testing.T) {
	f := newPipelineFixture(testSettings())
	f.chat.chat = testChat("only one message")

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, report.Outcome)
}

func TestPipeline_SkipsWhenNoCollectionActive(t *testing.T) {
	f := newPipelineFixture(testSettings())
	f.chat.chat = testChat("hello", "world")
	// Collection with no activation config is inactive by default.
	f.meta.addCollection(domain.Collection{ID: "lore", Enabled: true})

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, report.Outcome)
	assert.Equal(t, "no collections active", report.Reason)
}

func TestPipeline_EmptyWhenNothingRetrieved(t *testing.T) {
	f := newPipelineFixture(testSettings())
	f.chat.chat = testChat("hello", "world")
	f.meta.addCollection(alwaysActiveCollection("lore"))

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeEmpty, report.Outcome)
}

func TestPipeline_DedupDropsChunksPresentInContext(t *testing.T) {
	f := newPipelineFixture(testSettings())
	// The retrieved chunk text matches a recent message verbatim after
	// normalisation.
	f.chat.chat = testChat("hello", "the  dragon   guards the mountain")
	f.meta.addCollection(alwaysActiveCollection("lore"))
	f.backend.results["lore"] = &driven.QueryResult{
		Hashes: []uint32{1},
		Records: []driven.ChunkRecord{
			{Hash: 1, Score: 0.9, Text: "the dragon guards the mountain", Index: -1},
		},
	}

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeEmpty, report.Outcome)

	// The dedup stage is where the chunk disappeared.
	var dedup *domain.StageRecord
	for i := range report.Stages {
		if report.Stages[i].Name == "dedup" {
			dedup = &report.Stages[i]
		}
	}
	require.NotNil(t, dedup)
	assert.Equal(t, 1, dedup.In)
	assert.Equal(t, 0, dedup.Out)
}

func TestPipeline_SummaryExpansionKeepsScore(t *testing.T) {
	f := newPipelineFixture(testSettings())
	f.chat.chat = testChat("hello", "what happened at the siege")
	f.meta.addCollection(alwaysActiveCollection("lore"))
	f.backend.results["lore"] = &driven.QueryResult{
		Hashes: []uint32{10},
		Records: []driven.ChunkRecord{
			{Hash: 10, Score: 0.8, Text: "siege summary", Index: -1},
		},
	}
	f.meta.setChunkMeta("lore", domain.ChunkMeta{Hash: 10, IsSummary: true, ParentHash: 99})
	f.backend.records["lore"] = map[uint32]driven.ChunkRecord{
		99: {Hash: 99, Text: "the full account of the siege, in detail", Index: -1},
	}

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeInjected, report.Outcome)
	require.Len(t, report.Chunks, 1)
	expanded := report.Chunks[0]
	assert.Equal(t, "the full account of the siege, in detail", expanded.Text)
	// The summary's own score survives the swap: the last scoring step is
	// still the fusion/keyword stage, and the summary trace entry carries
	// factor 1.
	for _, step := range expanded.Trace {
		if step.Stage == "summary" {
			assert.Equal(t, 1.0, step.Factor)
		}
	}
	assert.Contains(t, report.Segments[0].Content, "full account")
}

func TestPipeline_SummaryFallsBackWhenParentMissing(t *testing.T) {
	f := newPipelineFixture(testSettings())
	f.chat.chat = testChat("hello", "what happened at the siege")
	f.meta.addCollection(alwaysActiveCollection("lore"))
	f.backend.results["lore"] = &driven.QueryResult{
		Hashes: []uint32{10},
		Records: []driven.ChunkRecord{
			{Hash: 10, Score: 0.8, Text: "siege summary", Index: -1},
		},
	}
	f.meta.setChunkMeta("lore", domain.ChunkMeta{Hash: 10, IsSummary: true, ParentHash: 99})
	// Parent 99 does not exist in the backend.

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)
	require.Len(t, report.Chunks, 1)
	assert.Equal(t, "siege summary", report.Chunks[0].Text)
}

func TestPipeline_TemporalWeightingApplied(t *testing.T) {
	settings := testSettings()
	f := newPipelineFixture(settings)
	f.chat.chat = testChat(
		"m0", "m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8",
		"tell me about early events",
	)
	col := alwaysActiveCollection("chat_mem")
	col.Temporal = domain.TemporalConfig{
		Enabled:  true,
		Type:     domain.TemporalDecay,
		Mode:     domain.TemporalExponential,
		HalfLife: 3,
	}
	f.meta.addCollection(col)
	f.backend.results["chat_mem"] = &driven.QueryResult{
		Hashes: []uint32{1},
		Records: []driven.ChunkRecord{
			{Hash: 1, Score: 0.9, Text: "an early event", Index: 0},
		},
	}

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)
	require.Len(t, report.Chunks, 1)

	var decayed bool
	for _, step := range report.Chunks[0].Trace {
		if step.Stage == "temporal.decay" {
			decayed = true
			assert.Less(t, step.Factor, 1.0)
		}
	}
	assert.True(t, decayed, "expected a temporal decay trace step")
}

func TestPipeline_RerankFailureKeepsFusionScores(t *testing.T) {
	settings := testSettings()
	settings.Rerank = true
	f := newPipelineFixture(settings)
	f.chat.chat = testChat("hello", "tell me about the dragon")
	f.meta.addCollection(alwaysActiveCollection("lore"))
	f.backend.results["lore"] = &driven.QueryResult{
		Hashes: []uint32{1},
		Records: []driven.ChunkRecord{
			{Hash: 1, Score: 0.9, Text: "the dragon guards the mountain", Index: -1},
		},
	}
	f.rerank.err = assert.AnError

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInjected, report.Outcome)
	assert.Equal(t, 1, f.rerank.calls)
	// No rerank trace step on the surviving chunk.
	for _, step := range report.Chunks[0].Trace {
		assert.NotEqual(t, "rerank", step.Stage)
	}
}

func TestPipeline_RerankRescoresChunks(t *testing.T) {
	settings := testSettings()
	settings.Rerank = true
	f := newPipelineFixture(settings)
	f.chat.chat = testChat("hello", "tell me about the dragon")
	f.meta.addCollection(alwaysActiveCollection("lore"))
	f.backend.results["lore"] = &driven.QueryResult{
		Hashes: []uint32{1, 2},
		Records: []driven.ChunkRecord{
			{Hash: 1, Score: 0.9, Text: "the dragon guards the mountain", Index: -1},
			{Hash: 2, Score: 0.6, Text: "villagers fear the beast", Index: -1},
		},
	}
	// The reranker inverts the order.
	f.rerank.results = []driven.RankedDocument{
		{Index: 0, Score: 0.2},
		{Index: 1, Score: 0.95},
	}

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)
	require.Len(t, report.Chunks, 2)
	assert.Equal(t, uint32(2), report.Chunks[0].Hash)
	assert.Equal(t, 0.95, report.Chunks[0].Score)
}

func TestPipeline_VerificationMismatchStillInjects(t *testing.T) {
	f := newPipelineFixture(testSettings())
	f.chat.chat = testChat("hello", "tell me about the dragon")
	f.meta.addCollection(alwaysActiveCollection("lore"))
	f.backend.results["lore"] = &driven.QueryResult{
		Hashes: []uint32{1},
		Records: []driven.ChunkRecord{
			{Hash: 1, Score: 0.9, Text: "the dragon guards the mountain", Index: -1},
		},
	}
	f.sink.readback = []domain.PromptSegment{{Position: domain.PositionInChat, Depth: 4, Content: "tampered"}}

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInjected, report.Outcome)
	assert.False(t, report.Verified)
	assert.NotEmpty(t, f.sink.segments)
}

func TestPipeline_ExclusiveGroupLeavesOneMember(t *testing.T) {
	f := newPipelineFixture(testSettings())
	f.chat.chat = testChat("hello", "tell me about the dragon")
	col := alwaysActiveCollection("lore")
	col.Groups = []domain.Group{
		{Name: "endings", Mode: domain.GroupExclusive, Members: []uint32{1, 2}},
	}
	f.meta.addCollection(col)
	f.backend.results["lore"] = &driven.QueryResult{
		Hashes: []uint32{1, 2},
		Records: []driven.ChunkRecord{
			{Hash: 1, Score: 0.9, Text: "the good ending", Index: -1},
			{Hash: 2, Score: 0.6, Text: "the bad ending", Index: -1},
		},
	}

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)
	require.Len(t, report.Chunks, 1)
	assert.Equal(t, uint32(1), report.Chunks[0].Hash)
}

func TestPipeline_PersistsActivationHistory(t *testing.T) {
	f := newPipelineFixture(testSettings())
	f.chat.chat = testChat("hello", "the dragon appears")
	f.meta.addCollection(alwaysActiveCollection("lore"))
	f.backend.results["lore"] = &driven.QueryResult{
		Hashes: []uint32{1},
		Records: []driven.ChunkRecord{
			{Hash: 1, Score: 0.9, Text: "gated lore", Index: -1},
		},
	}
	f.meta.setChunkMeta("lore", domain.ChunkMeta{Hash: 1, Conditions: &domain.ConditionConfig{
		Enabled: true,
		Logic:   domain.LogicOr,
		Rules: []domain.ConditionRule{
			{Kind: "pattern", Settings: map[string]any{"pattern": "dragon"}},
		},
	}})

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInjected, report.Outcome)

	counters := f.meta.counters["chat-1"]
	require.NotNil(t, counters)
	assert.Equal(t, 1, counters[1].Count)
	assert.Equal(t, 1, counters[1].LastIndex)
}

func TestPipeline_CollectionFailureDegradesGracefully(t *testing.T) {
	f := newPipelineFixture(testSettings())
	f.chat.chat = testChat("hello", "tell me about the dragon")
	f.meta.addCollection(alwaysActiveCollection("lore"))
	f.meta.addCollection(alwaysActiveCollection("broken"))
	f.backend.results["lore"] = &driven.QueryResult{
		Hashes: []uint32{1},
		Records: []driven.ChunkRecord{
			{Hash: 1, Score: 0.9, Text: "the dragon guards the mountain", Index: -1},
		},
	}
	// "broken" has no results configured, which the mock treats as empty
	// rather than failing; real failures are covered in retrieval tests.

	report, err := f.svc.Run(context.Background(), "normal")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInjected, report.Outcome)
	require.Len(t, report.Chunks, 1)
}
