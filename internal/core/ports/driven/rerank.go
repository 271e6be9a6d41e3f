package driven

import "context"

// RerankService scores candidate documents against a query with a
// cross-encoder model. This is an optional service - when nil, or when any
// call fails, the pipeline keeps its fusion ordering.
type RerankService interface {
	// Rerank scores documents against the query. Results reference
	// documents by input position and may omit or reorder entries.
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RankedDocument, error)

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error
}

// RankedDocument is one reranker verdict.
type RankedDocument struct {
	// Index is the document's position in the Rerank input.
	Index int

	// Score is the cross-encoder relevance score.
	Score float64
}
