package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
	"github.com/custodia-labs/recall-cli/internal/rank"
)

// RetrievalService fetches candidates from the vector backend per collection
// and produces hybrid-scored chunks. One collection failing never fails the
// whole retrieval: the failure is logged, the collection contributes nothing
// and the remaining collections proceed.
type RetrievalService struct {
	backend  driven.VectorBackend
	meta     driven.MetadataStore
	embedder driven.EmbeddingService
}

// NewRetrievalService creates a retrieval service.
// The embedder parameter is optional (can be nil) - without it the backend
// embeds the query server-side.
func NewRetrievalService(
	backend driven.VectorBackend,
	meta driven.MetadataStore,
	embedder driven.EmbeddingService,
) *RetrievalService {
	return &RetrievalService{
		backend:  backend,
		meta:     meta,
		embedder: embedder,
	}
}

// RetrievalResult is the combined outcome of one retrieval pass.
type RetrievalResult struct {
	// Chunks are the per-collection top-K candidates, hybrid-scored.
	Chunks []domain.Chunk

	// Retrieved indexes every chunk fetched this pass by hash, including
	// those trimmed below the per-collection cut. Group and link
	// resolution draws forced inclusions from here.
	Retrieved map[uint32]domain.Chunk

	// Notes record per-collection failures for the audit trail.
	Notes []string
}

// collectionOutcome is one collection's share of the retrieval.
type collectionOutcome struct {
	collectionID string
	kept         []domain.Chunk
	fetched      []domain.Chunk
	err          error
}

// Retrieve queries every active collection concurrently and merges the
// results. The query is embedded once when an embedding service is
// configured; otherwise the raw text is handed to the backend.
func (s *RetrievalService) Retrieve(
	ctx context.Context, collections []domain.Collection, query string, settings domain.Settings,
) (*RetrievalResult, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q across %d collections", query, len(collections))

	overfetch := rank.OverfetchLimit(settings.TopK)
	logger.Debug("TopK: %d, overfetch limit: %d", settings.TopK, overfetch)

	var vector []float32
	if s.embedder != nil {
		embedded, err := s.embedder.Embed(ctx, query)
		if err != nil {
			logger.Warn("Query embedding failed: %v (backend will embed)", err)
		} else {
			vector = embedded
			logger.Debug("Query embedding: %d dimensions", len(vector))
		}
	}

	outcomes := make([]collectionOutcome, len(collections))

	var wg sync.WaitGroup
	for i := range collections {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			col := &collections[i]
			kept, fetched, err := s.retrieveCollection(ctx, col, query, vector, overfetch, settings)
			outcomes[i] = collectionOutcome{collectionID: col.ID, kept: kept, fetched: fetched, err: err}
		}(i)
	}
	wg.Wait()

	result := &RetrievalResult{Retrieved: make(map[uint32]domain.Chunk)}
	for _, out := range outcomes {
		if out.err != nil {
			logger.Warn("Collection %s retrieval failed: %v (continuing without it)", out.collectionID, out.err)
			result.Notes = append(result.Notes,
				fmt.Sprintf("collection %s failed: %v", out.collectionID, out.err))
			continue
		}
		result.Chunks = append(result.Chunks, out.kept...)
		for _, c := range out.fetched {
			result.Retrieved[c.Hash] = c
		}
	}

	logger.Info("Retrieval: %d candidates from %d collections", len(result.Chunks), len(collections))
	return result, nil
}

// retrieveCollection runs one collection's hybrid search: backend similarity
// query, BM25 over the fetched texts, fusion, keyword boost, trim.
func (s *RetrievalService) retrieveCollection(
	ctx context.Context, col *domain.Collection, query string, vector []float32,
	overfetch int, settings domain.Settings,
) (kept, fetched []domain.Chunk, err error) {
	res, err := s.backend.Query(ctx, col.ID, query, overfetch, vector)
	if err != nil {
		return nil, nil, fmt.Errorf("backend query: %w", err)
	}
	if len(res.Records) == 0 {
		logger.Debug("Collection %s: no matches", col.ID)
		return nil, nil, nil
	}

	metas, err := s.meta.ChunkMetaAll(ctx, col.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load chunk metadata: %w", err)
	}

	// Reconstitute chunks, skipping disabled ones before scoring.
	chunks := make([]domain.Chunk, 0, len(res.Records))
	texts := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		if m, ok := metas[rec.Hash]; ok && m.Disabled {
			logger.Debug("Collection %s: chunk %d disabled, skipped", col.ID, rec.Hash)
			continue
		}
		chunk := domain.Chunk{
			Hash:         rec.Hash,
			CollectionID: col.ID,
			Text:         rec.Text,
			VectorScore:  rec.Score,
			MessageIndex: rec.Index,
		}
		if m, ok := metas[rec.Hash]; ok {
			chunk.ApplyMeta(&m)
		}
		chunks = append(chunks, chunk)
		texts = append(texts, rec.Text)
	}
	if len(chunks) == 0 {
		return nil, nil, nil
	}

	// Lexical pass over the fetched candidate texts.
	scorer := rank.NewScorer(texts)
	queryTerms := rank.Tokenize(query)

	vectorList := make([]rank.Ranked, len(chunks))
	lexicalList := make([]rank.Ranked, len(chunks))
	for i := range chunks {
		chunks[i].LexicalScore = scorer.ScoreDocument(queryTerms, i)
		vectorList[i] = rank.Ranked{Hash: chunks[i].Hash, Score: chunks[i].VectorScore}
		lexicalList[i] = rank.Ranked{Hash: chunks[i].Hash, Score: chunks[i].LexicalScore}
	}
	rank.SortRanked(vectorList)
	rank.SortRanked(lexicalList)

	var fusedList []rank.Ranked
	if settings.Fusion == domain.FusionWeighted {
		fusedList = rank.WeightedCombine(vectorList, lexicalList, settings.VectorWeight, settings.LexicalWeight)
	} else {
		fusedList = rank.FuseDisplay(vectorList, lexicalList, settings.RRFK)
	}

	fusedScores := make(map[uint32]float64, len(fusedList))
	for _, item := range fusedList {
		fusedScores[item.Hash] = item.Score
	}

	byHash := make(map[uint32]*domain.Chunk, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		c.SetScore("fusion", fusedScores[c.Hash], string(settings.Fusion))
		byHash[c.Hash] = c
	}

	// Keyword boost overlay.
	for _, c := range byHash {
		if len(c.Keywords) == 0 {
			continue
		}
		boost := rank.KeywordBoost(c.Keywords, query)
		if boost <= 1 {
			continue
		}
		if settings.ForceKeywordScore {
			c.SetScore("keywords", 1.0, "keyword match forces top score")
		} else {
			c.ApplyFactor("keywords", boost, "keyword boost")
		}
	}

	// Order by final score and trim to the per-collection budget.
	ordered := make([]domain.Chunk, 0, len(fusedList))
	for _, item := range fusedList {
		ordered = append(ordered, *byHash[item.Hash])
	}
	sortChunksByScore(ordered)

	fetched = append([]domain.Chunk{}, ordered...)
	if len(ordered) > settings.TopK && settings.TopK > 0 {
		ordered = ordered[:settings.TopK]
	}

	logger.Debug("Collection %s: %d fetched, %d kept", col.ID, len(fetched), len(ordered))
	return ordered, fetched, nil
}
