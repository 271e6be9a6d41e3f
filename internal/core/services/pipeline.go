package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/recall-cli/internal/activation"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/grouping"
	"github.com/custodia-labs/recall-cli/internal/logger"
	"github.com/custodia-labs/recall-cli/internal/weighting"
)

// Ensure PipelineService implements the interface.
var _ driving.Injector = (*PipelineService)(nil)

// PipelineService runs the retrieval pipeline: activation, retrieval,
// scoring, filtering, group resolution and prompt injection. Early exits
// are silent no-ops reported through the run outcome, never errors.
type PipelineService struct {
	chat      driven.ChatSource
	sink      driven.PromptSink
	meta      driven.MetadataStore
	backend   driven.VectorBackend
	retrieval *RetrievalService
	rerank    driven.RerankService
	settings  driving.SettingsService
	filter    *activation.Filter
}

// NewPipelineService creates a pipeline service.
// The rerank parameter is optional (can be nil) - the rerank stage is then
// skipped regardless of settings.
func NewPipelineService(
	chat driven.ChatSource,
	sink driven.PromptSink,
	meta driven.MetadataStore,
	backend driven.VectorBackend,
	retrieval *RetrievalService,
	rerank driven.RerankService,
	settings driving.SettingsService,
) *PipelineService {
	return &PipelineService{
		chat:      chat,
		sink:      sink,
		meta:      meta,
		backend:   backend,
		retrieval: retrieval,
		rerank:    rerank,
		settings:  settings,
		filter:    activation.NewFilter(nil),
	}
}

// SetFilter swaps the activation filter, letting hosts register custom
// condition rule kinds.
func (s *PipelineService) SetFilter(f *activation.Filter) {
	if f != nil {
		s.filter = f
	}
}

// Run executes one full pipeline pass for the current chat.
func (s *PipelineService) Run(ctx context.Context, generationType string) (*domain.RunReport, error) {
	logger.Section("Pipeline Run")

	report := &domain.RunReport{RunID: uuid.NewString()}
	logger.Debug("Run %s, generation type %q", report.RunID, generationType)

	settings, err := s.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	chat, err := s.chat.Chat(ctx)
	if err != nil {
		logger.Debug("No chat available: %v", err)
		return skip(report, "no chat selected"), nil
	}
	if len(chat.Messages) < settings.MinChatLength {
		return skip(report, fmt.Sprintf("chat has %d messages, minimum is %d",
			len(chat.Messages), settings.MinChatLength)), nil
	}

	sc, err := s.buildContext(ctx, chat, generationType)
	if err != nil {
		return nil, err
	}

	query := buildQueryText(chat.Messages, settings.QueryDepth)
	if query == "" {
		return skip(report, "empty query text"), nil
	}
	logger.Debug("Query text: %q", query)

	// Collect and activate collections.
	all, err := s.meta.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	active, notes := s.activeCollections(all, sc)
	report.Stage("activation", len(all), len(active), notes...)
	if len(active) == 0 {
		return skip(report, "no collections active"), nil
	}

	colIndex := make(map[string]*domain.Collection, len(active))
	for i := range active {
		colIndex[active[i].ID] = &active[i]
	}

	// Retrieve and merge.
	retrieved, err := s.retrieval.Retrieve(ctx, active, query, *settings)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	chunks := retrieved.Chunks
	report.Stage("retrieval", len(active), len(chunks), retrieved.Notes...)
	if len(chunks) == 0 {
		return empty(report, "no candidates retrieved"), nil
	}

	// Summary expansion keeps the summary's score but swaps in parent text.
	chunks = s.expandSummaries(ctx, chunks)

	// Optional rerank; failure keeps fusion scores.
	if settings.Rerank && s.rerank != nil {
		in := len(chunks)
		chunks = s.rerankChunks(ctx, query, chunks, settings.TopK)
		report.Stage("rerank", in, len(chunks))
	}

	// Threshold, temporal weighting, threshold again.
	in := len(chunks)
	chunks = thresholdFilter(chunks, settings.ScoreThreshold)
	report.Stage("threshold", in, len(chunks))

	in = len(chunks)
	for i := range chunks {
		col := colIndex[chunks[i].CollectionID]
		if col == nil || !col.Temporal.Enabled {
			continue
		}
		weighting.Apply(&chunks[i], col.Temporal, sc.CurrentIndex, sc.SceneBreaks)
	}
	chunks = thresholdFilter(chunks, settings.ScoreThreshold)
	report.Stage("temporal", in, len(chunks))

	// Chunk-level condition gating.
	in = len(chunks)
	chunks = s.chunkConditions(chunks, sc)
	report.Stage("conditions", in, len(chunks))

	// Groups and links.
	in = len(chunks)
	resolved := grouping.Resolve(chunks, retrieved.Retrieved, colIndex, s.groupLookup(ctx))
	chunks = resolved.Chunks
	report.Stage("groups", in, len(chunks), groupNotes(resolved.Events)...)

	// Dedup against the trailing chat window by content hash.
	in = len(chunks)
	chunks = dedupAgainstContext(chunks, chat.Messages, settings.DedupWindow)
	report.Stage("dedup", in, len(chunks))

	s.persistHistory(ctx, chat.ID, sc)

	report.Chunks = chunks
	if len(chunks) == 0 {
		return empty(report, "nothing qualified after filtering"), nil
	}

	// Inject and verify.
	segments := buildSegments(chunks, colIndex, *settings)
	if len(segments) == 0 {
		return empty(report, "no renderable segments"), nil
	}
	if err := s.sink.Inject(ctx, segments); err != nil {
		return nil, fmt.Errorf("inject segments: %w", err)
	}

	report.Outcome = domain.OutcomeInjected
	report.Segments = segments
	report.Verified = s.verifyInjection(ctx, segments)
	if !report.Verified {
		logger.Warn("Injection readback mismatch for run %s", report.RunID)
	}

	logger.Info("Run %s: injected %d segments (%d chunks)", report.RunID, len(segments), len(chunks))
	return report, nil
}

// buildContext assembles the per-run search context, seeding activation
// history from the persisted counters.
func (s *PipelineService) buildContext(ctx context.Context, chat *domain.Chat, generationType string) (*domain.SearchContext, error) {
	counters, err := s.meta.ActivationCounters(ctx, chat.ID)
	if err != nil {
		logger.Warn("Loading activation history failed: %v (starting empty)", err)
		counters = nil
	}
	return &domain.SearchContext{
		Messages:       chat.Messages,
		GenerationType: generationType,
		IsGroupChat:    chat.IsGroup,
		ChatID:         chat.ID,
		CharacterID:    chat.CharacterID,
		CurrentIndex:   len(chat.Messages) - 1,
		SceneBreaks:    chat.SceneBreaks,
		History:        domain.NewActivationHistory(counters),
	}, nil
}

// activeCollections applies the activation filter, returning the active
// subset plus per-collection decision notes.
func (s *PipelineService) activeCollections(all []domain.Collection, sc *domain.SearchContext) ([]domain.Collection, []string) {
	active := make([]domain.Collection, 0, len(all))
	notes := make([]string, 0, len(all))
	for i := range all {
		decision := s.filter.CollectionActive(&all[i], sc)
		notes = append(notes, fmt.Sprintf("%s: active=%t (%s)", all[i].ID, decision.Active, decision.Reason))
		if decision.Active {
			active = append(active, all[i])
		}
	}
	return active, notes
}

// expandSummaries swaps summary chunks for their parent text while keeping
// the summary's score. Unresolvable parents fall back to the summary text.
func (s *PipelineService) expandSummaries(ctx context.Context, chunks []domain.Chunk) []domain.Chunk {
	// Batch parent fetches per collection.
	wanted := make(map[string][]uint32)
	for _, c := range chunks {
		if c.IsSummary && c.ParentHash != 0 {
			wanted[c.CollectionID] = append(wanted[c.CollectionID], c.ParentHash)
		}
	}
	if len(wanted) == 0 {
		return chunks
	}

	parents := make(map[uint32]string)
	for collectionID, hashes := range wanted {
		records, err := s.backend.Fetch(ctx, collectionID, hashes)
		if err != nil {
			logger.Warn("Fetching summary parents for %s failed: %v (keeping summary text)", collectionID, err)
			continue
		}
		for _, rec := range records {
			parents[rec.Hash] = rec.Text
		}
	}

	for i := range chunks {
		c := &chunks[i]
		if !c.IsSummary || c.ParentHash == 0 {
			continue
		}
		text, ok := parents[c.ParentHash]
		if !ok {
			logger.Debug("Summary chunk %d: parent %d unresolvable, keeping summary text", c.Hash, c.ParentHash)
			continue
		}
		c.Text = text
		c.Trace = append(c.Trace, domain.TraceStep{Stage: "summary", Factor: 1,
			Note: fmt.Sprintf("expanded to parent %d", c.ParentHash)})
	}
	return chunks
}

// rerankChunks rescores chunks with the external rerank service. Any
// failure keeps the incoming order and scores.
func (s *PipelineService) rerankChunks(ctx context.Context, query string, chunks []domain.Chunk, topK int) []domain.Chunk {
	documents := make([]string, len(chunks))
	for i, c := range chunks {
		documents[i] = c.Text
	}

	ranked, err := s.rerank.Rerank(ctx, query, documents, topK)
	if err != nil {
		logger.Warn("Rerank failed: %v (keeping fusion scores)", err)
		return chunks
	}

	for _, r := range ranked {
		if r.Index < 0 || r.Index >= len(chunks) {
			continue
		}
		chunks[r.Index].SetScore("rerank", r.Score, "cross-encoder score")
	}
	sortChunksByScore(chunks)
	return chunks
}

// chunkConditions applies per-chunk rule gating.
func (s *PipelineService) chunkConditions(chunks []domain.Chunk, sc *domain.SearchContext) []domain.Chunk {
	kept := chunks[:0]
	for i := range chunks {
		if s.filter.ChunkActive(&chunks[i], sc).Active {
			kept = append(kept, chunks[i])
		}
	}
	return kept
}

// groupLookup adapts the backend's Fetch into the resolver's lookup for
// mandatory members absent from the current result set.
func (s *PipelineService) groupLookup(ctx context.Context) grouping.Lookup {
	return func(collectionID string, hash uint32) (*domain.Chunk, bool) {
		records, err := s.backend.Fetch(ctx, collectionID, []uint32{hash})
		if err != nil || len(records) == 0 {
			return nil, false
		}
		rec := records[0]
		chunk := &domain.Chunk{
			Hash:         rec.Hash,
			CollectionID: collectionID,
			Text:         rec.Text,
			Score:        rec.Score,
			MessageIndex: rec.Index,
		}
		if meta, err := s.meta.ChunkMeta(ctx, collectionID, hash); err == nil {
			chunk.ApplyMeta(meta)
		}
		return chunk, true
	}
}

// persistHistory writes back the run's activation counters. Failures are
// logged only - history is advisory.
func (s *PipelineService) persistHistory(ctx context.Context, chatID string, sc *domain.SearchContext) {
	if sc.History == nil {
		return
	}
	counters := sc.History.Counters()
	if len(counters) == 0 {
		return
	}
	if err := s.meta.SaveActivationCounters(ctx, chatID, counters); err != nil {
		logger.Warn("Persisting activation history failed: %v", err)
	}
}

// verifyInjection reads segments back from the sink and compares them to
// what was intended.
func (s *PipelineService) verifyInjection(ctx context.Context, intended []domain.PromptSegment) bool {
	placed, err := s.sink.Injected(ctx)
	if err != nil {
		logger.Warn("Injection readback failed: %v", err)
		return false
	}
	if len(placed) != len(intended) {
		return false
	}
	for i := range intended {
		if placed[i] != intended[i] {
			return false
		}
	}
	return true
}

// buildQueryText joins the trailing depth messages into the query.
func buildQueryText(messages []domain.Message, depth int) string {
	if depth <= 0 {
		depth = 1
	}
	start := len(messages) - depth
	if start < 0 {
		start = 0
	}
	parts := make([]string, 0, depth)
	for _, m := range messages[start:] {
		if text := strings.TrimSpace(m.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// thresholdFilter drops chunks scoring below the bar.
func thresholdFilter(chunks []domain.Chunk, threshold float64) []domain.Chunk {
	kept := chunks[:0]
	for i := range chunks {
		if chunks[i].Score >= threshold {
			kept = append(kept, chunks[i])
		} else {
			logger.Debug("Chunk %d below threshold (%.3f < %.3f)", chunks[i].Hash, chunks[i].Score, threshold)
		}
	}
	return kept
}

// dedupAgainstContext removes chunks whose content hash matches any message
// in the trailing window. Content identity is the storage-time hash, so a
// chunk and its originating message always collide.
func dedupAgainstContext(chunks []domain.Chunk, messages []domain.Message, window int) []domain.Chunk {
	if window <= 0 || len(messages) == 0 {
		return chunks
	}
	start := len(messages) - window
	if start < 0 {
		start = 0
	}
	recent := make(map[uint32]bool, len(messages)-start)
	for _, m := range messages[start:] {
		recent[domain.HashText(m.Text)] = true
	}

	kept := chunks[:0]
	for i := range chunks {
		if recent[domain.HashText(chunks[i].Text)] {
			logger.Debug("Chunk %d already present in recent context, deduped", chunks[i].Hash)
			continue
		}
		kept = append(kept, chunks[i])
	}
	return kept
}

// groupNotes formats resolver events for the stage record.
func groupNotes(events []grouping.Event) []string {
	notes := make([]string, len(events))
	for i, e := range events {
		notes[i] = fmt.Sprintf("%s %s/%s: %d -> %d (%s)",
			e.Stage, e.Collection, e.Group, e.Source, e.Target, e.Note)
	}
	return notes
}

// skip finalises a report with a precondition early-exit.
func skip(report *domain.RunReport, reason string) *domain.RunReport {
	logger.Info("Pipeline skipped: %s", reason)
	report.Outcome = domain.OutcomeSkipped
	report.Reason = reason
	return report
}

// empty finalises a report for a run that filtered everything out.
func empty(report *domain.RunReport, reason string) *domain.RunReport {
	logger.Info("Pipeline empty: %s", reason)
	report.Outcome = domain.OutcomeEmpty
	report.Reason = reason
	return report
}
