package driven

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// KeywordExtractor produces weighted boost keywords for chunk text during
// sync. This is an optional service - when nil, or when extraction fails,
// chunks are stored without keywords.
type KeywordExtractor interface {
	// Extract returns up to maxKeywords weighted keywords for the text.
	Extract(ctx context.Context, text string, maxKeywords int) ([]domain.Keyword, error)

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error
}
