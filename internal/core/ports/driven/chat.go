package driven

import (
	"context"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// ChatSource exposes the host chat the pipeline runs against.
type ChatSource interface {
	// Chat returns the current chat with its full ordered message list.
	// Returns domain.ErrNoChat when no chat is active.
	Chat(ctx context.Context) (*domain.Chat, error)

	// GenerationInProgress reports whether the host is currently generating
	// a response. Sync aborts between batches while this is true.
	GenerationInProgress(ctx context.Context) bool
}

// PromptSink receives the pipeline's output segments and lets the caller
// read back what was actually placed for verification.
type PromptSink interface {
	// Inject hands the assembled segments to the host, replacing any
	// segments from a previous run.
	Inject(ctx context.Context, segments []domain.PromptSegment) error

	// Injected returns the segments currently placed in the prompt.
	Injected(ctx context.Context) ([]domain.PromptSegment, error)
}
