package rank

import (
	"strings"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// Overfetch bounds: the pipeline retrieves more candidates than requested
// so that boosted-but-lower-vector-rank chunks can surface after boosting.
const (
	overfetchFloor   = 10
	overfetchCeiling = 100
)

// KeywordBoost computes the score multiplier for a chunk's precomputed
// keywords against a query: 1.0 + sum of (weight-1.0) over every keyword
// whose text appears as a substring of the lowercased query. Weights at or
// below 1.0 contribute nothing.
func KeywordBoost(keywords []domain.Keyword, query string) float64 {
	if len(keywords) == 0 || query == "" {
		return 1.0
	}

	lowered := strings.ToLower(query)

	boost := 1.0
	for _, kw := range keywords {
		if kw.Text == "" || kw.Weight <= 1.0 {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(kw.Text)) {
			boost += kw.Weight - 1.0
		}
	}

	return boost
}

// OverfetchLimit returns the candidate count to request before boosting:
// min(100, max(10, 2*requested)).
func OverfetchLimit(requested int) int {
	limit := 2 * requested
	if limit < overfetchFloor {
		limit = overfetchFloor
	}
	if limit > overfetchCeiling {
		limit = overfetchCeiling
	}
	return limit
}
