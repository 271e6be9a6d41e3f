package domain

import "time"

// FusionMode selects how vector and lexical rankings merge.
type FusionMode string

// Available fusion modes.
const (
	// FusionRRF merges by reciprocal rank with a display-score remap.
	FusionRRF FusionMode = "rrf"

	// FusionWeighted merges min-max normalised scores linearly.
	FusionWeighted FusionMode = "weighted"
)

// IsValid returns true if the fusion mode is recognised.
func (m FusionMode) IsValid() bool {
	return m == FusionRRF || m == FusionWeighted
}

// Settings are the global pipeline parameters. Chunk and collection
// overrides cascade above Position and Depth via ResolveOverride.
type Settings struct {
	// TopK is the number of chunks requested per collection.
	TopK int

	// ScoreThreshold drops chunks below the bar; applied before and
	// re-applied after temporal weighting.
	ScoreThreshold float64

	// MinChatLength is the minimum message count before the pipeline runs.
	MinChatLength int

	// QueryDepth is how many trailing messages form the query text.
	QueryDepth int

	// DedupWindow is the trailing message count checked for verbatim
	// duplicates of retrieved chunks.
	DedupWindow int

	// Fusion parameters.
	Fusion        FusionMode
	RRFK          int
	VectorWeight  float64
	LexicalWeight float64

	// ForceKeywordScore pins a keyword-matched chunk's score to 1.0
	// instead of multiplying by the boost.
	ForceKeywordScore bool

	// Rerank enables the external rerank stage when a service is wired.
	Rerank bool

	// Global placement defaults, overridable per collection and per chunk.
	Position InjectPosition
	Depth    int

	// Template wraps the final text of every injected block; {{text}} is
	// replaced with the block content.
	Template string

	// SyncWaitTimeout bounds how long a sync call waits for an in-progress
	// sync of the same chat before giving up.
	SyncWaitTimeout time.Duration
}

// DefaultSettings returns the standard pipeline parameters.
func DefaultSettings() Settings {
	return Settings{
		TopK:              10,
		ScoreThreshold:    0.25,
		MinChatLength:     2,
		QueryDepth:        2,
		DedupWindow:       20,
		Fusion:            FusionRRF,
		RRFK:              60,
		VectorWeight:      0.5,
		LexicalWeight:     0.5,
		ForceKeywordScore: true,
		Rerank:            false,
		Position:          PositionInChat,
		Depth:             4,
		Template:          "{{text}}",
		SyncWaitTimeout:   30 * time.Second,
	}
}
