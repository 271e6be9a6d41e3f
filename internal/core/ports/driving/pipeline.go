package driving

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// Injector runs the retrieval pipeline end to end: query construction,
// activation, retrieval, scoring, filtering and prompt injection.
type Injector interface {
	// Run executes one full pipeline pass for the current chat and returns
	// the audit report. A run that injects nothing is still a successful
	// run with an outcome explaining why.
	Run(ctx context.Context, generationType string) (*domain.RunReport, error)
}
