package domain

// TraceStep is one entry of a chunk's score lineage: the stage that touched
// the score, the multiplier it applied and an optional cause.
type TraceStep struct {
	Stage  string  `json:"stage"`
	Factor float64 `json:"factor"`
	Note   string  `json:"note,omitempty"`
}

// ApplyFactor multiplies the chunk's score and records the step.
func (c *Chunk) ApplyFactor(stage string, factor float64, note string) {
	c.Score *= factor
	c.Trace = append(c.Trace, TraceStep{Stage: stage, Factor: factor, Note: note})
}

// SetScore replaces the chunk's score outright and records the step with
// the replacement value as the factor.
func (c *Chunk) SetScore(stage string, score float64, note string) {
	c.Score = score
	c.Trace = append(c.Trace, TraceStep{Stage: stage, Factor: score, Note: note})
}

// RunOutcome is the terminal state of one pipeline run.
type RunOutcome string

// Available run outcomes.
const (
	// OutcomeInjected means segments were handed to the host.
	OutcomeInjected RunOutcome = "injected"

	// OutcomeSkipped means a precondition early-exit occurred (no chat,
	// short chat, nothing active, empty query). Silent, not an error.
	OutcomeSkipped RunOutcome = "skipped"

	// OutcomeEmpty means the pipeline ran but nothing qualified after
	// filtering and deduplication. Silent, not an error.
	OutcomeEmpty RunOutcome = "empty"
)

// StageRecord captures observable filtering semantics for one stage.
type StageRecord struct {
	Name string `json:"name"`

	// In and Out count chunks entering and leaving the stage.
	In  int `json:"in"`
	Out int `json:"out"`

	// Notes record stage-specific events (exclusions, forced inclusions,
	// per-collection failures) with their cause.
	Notes []string `json:"notes,omitempty"`
}

// PromptSegment is one (position, depth)-tagged block of formatted text
// produced for the host's prompt-injection sink.
type PromptSegment struct {
	Position InjectPosition `json:"position"`
	Depth    int            `json:"depth"`
	Content  string         `json:"content"`
}

// RunReport is the per-run audit trail. Every run produces one, including
// early exits.
type RunReport struct {
	RunID   string     `json:"runId"`
	Outcome RunOutcome `json:"outcome"`

	// Reason explains skipped and empty outcomes.
	Reason string `json:"reason,omitempty"`

	Stages   []StageRecord   `json:"stages,omitempty"`
	Chunks   []Chunk         `json:"chunks,omitempty"`
	Segments []PromptSegment `json:"segments,omitempty"`

	// Verified is false when the post-injection readback differed from
	// the intended text. The text is still injected.
	Verified bool `json:"verified"`
}

// Stage appends a stage record and returns the report for chaining.
func (r *RunReport) Stage(name string, in, out int, notes ...string) *RunReport {
	r.Stages = append(r.Stages, StageRecord{Name: name, In: in, Out: out, Notes: notes})
	return r
}
