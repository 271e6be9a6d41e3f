package domain

// InjectPosition identifies where a prompt segment is placed by the host.
type InjectPosition string

// Available injection positions.
const (
	// PositionBeforePrompt places segments ahead of the main prompt.
	PositionBeforePrompt InjectPosition = "before_prompt"

	// PositionAfterPrompt places segments after the main prompt.
	PositionAfterPrompt InjectPosition = "after_prompt"

	// PositionInChat interleaves segments into the chat at Depth messages
	// from the end.
	PositionInChat InjectPosition = "in_chat"
)

// IsValid returns true if the position is recognised.
func (p InjectPosition) IsValid() bool {
	switch p {
	case PositionBeforePrompt, PositionAfterPrompt, PositionInChat:
		return true
	default:
		return false
	}
}

// MatchMode controls how trigger keywords combine.
type MatchMode string

// Available trigger match modes.
const (
	// MatchAny activates when at least one trigger matches.
	MatchAny MatchMode = "any"

	// MatchAll activates only when every trigger matches.
	MatchAll MatchMode = "all"
)

// ConditionLogic controls how condition rules combine.
type ConditionLogic string

// Available condition combinators.
const (
	LogicAnd ConditionLogic = "and"
	LogicOr  ConditionLogic = "or"
)

// ConditionRule is one rule-based activation predicate. Kind selects a
// registered evaluator; Settings carries kind-specific parameters.
// Unknown kinds and malformed settings evaluate to false, never error.
type ConditionRule struct {
	Kind     string         `json:"kind"`
	Negate   bool           `json:"negate,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// ConditionConfig is a set of rules with a combinator.
type ConditionConfig struct {
	Enabled bool            `json:"enabled"`
	Logic   ConditionLogic  `json:"logic,omitempty"`
	Rules   []ConditionRule `json:"rules,omitempty"`
}

// ActivationConfig decides whether a collection participates in a query.
// Exactly one branch decides activation, in strict priority order:
// always-active > lock > triggers > conditions > default-inactive.
type ActivationConfig struct {
	AlwaysActive bool `json:"alwaysActive,omitempty"`

	// ChatLocks and CharacterLocks force activation for matching chats
	// or characters.
	ChatLocks      []string `json:"chatLocks,omitempty"`
	CharacterLocks []string `json:"characterLocks,omitempty"`

	// Triggers are substrings or /regex/flags forms scanned over the
	// last ScanDepth messages.
	Triggers      []string  `json:"triggers,omitempty"`
	TriggerMode   MatchMode `json:"triggerMode,omitempty"`
	ScanDepth     int       `json:"scanDepth,omitempty"`
	CaseSensitive bool      `json:"caseSensitive,omitempty"`

	Conditions ConditionConfig `json:"conditions,omitempty"`
}

// TemporalType selects the direction of age weighting.
type TemporalType string

// Available temporal weighting types.
const (
	// TemporalDecay favours recent chunks.
	TemporalDecay TemporalType = "decay"

	// TemporalNostalgia favours old chunks.
	TemporalNostalgia TemporalType = "nostalgia"
)

// TemporalMode selects the weighting curve.
type TemporalMode string

// Available temporal curves.
const (
	TemporalExponential TemporalMode = "exponential"
	TemporalLinear      TemporalMode = "linear"
)

// Default temporal parameters.
const (
	DefaultDecayFloor = 0.3
	DefaultHalfLife   = 50.0
)

// TemporalConfig is a collection's age-weighting configuration.
type TemporalConfig struct {
	Enabled  bool         `json:"enabled"`
	Type     TemporalType `json:"type,omitempty"`
	Mode     TemporalMode `json:"mode,omitempty"`
	HalfLife float64      `json:"halfLife,omitempty"`
	Rate     float64      `json:"rate,omitempty"`

	// Floor is the hard lower bound for decay multipliers.
	Floor float64 `json:"floor,omitempty"`

	// MaxBoost is the asymptotic ceiling for nostalgia multipliers.
	MaxBoost float64 `json:"maxBoost,omitempty"`

	// SceneAware computes age relative to the chunk's own scene start.
	SceneAware bool `json:"sceneAware,omitempty"`
}

// GroupMode distinguishes suppression groups from reinforcement groups.
type GroupMode string

// Available group modes.
const (
	// GroupExclusive keeps only the highest-scoring member.
	GroupExclusive GroupMode = "exclusive"

	// GroupInclusive links surviving members to every other member.
	GroupInclusive GroupMode = "inclusive"
)

// DefaultSoftLinkBoost is the score boost applied by soft links when the
// owning collection does not configure one.
const DefaultSoftLinkBoost = 0.15

// Group is a named cluster of chunk identities within a collection.
type Group struct {
	Name string    `json:"name"`
	Mode GroupMode `json:"mode"`

	// Mandatory (exclusive groups only) guarantees at least one member
	// survives resolution.
	Mandatory bool `json:"mandatory,omitempty"`

	// HardLinks makes inclusive groups generate hard instead of soft links.
	HardLinks bool `json:"hardLinks,omitempty"`

	// SoftBoost is the magnitude of generated soft links; 0 falls back to
	// the collection's SoftLinkBoost.
	SoftBoost float64 `json:"softBoost,omitempty"`

	Members []uint32 `json:"members"`
}

// Collection is an independently configured content source. Its JSON form
// is the per-collection record held by the metadata store.
type Collection struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`

	Activation ActivationConfig `json:"activation,omitempty"`
	Temporal   TemporalConfig   `json:"temporal,omitempty"`
	Groups     []Group          `json:"groups,omitempty"`

	// SoftLinkBoost is the default boost for soft links in this collection.
	SoftLinkBoost float64 `json:"softLinkBoost,omitempty"`

	// Position and Depth override global placement for the collection's chunks.
	Position *InjectPosition `json:"position,omitempty"`
	Depth    *int            `json:"depth,omitempty"`

	// Template wraps the collection's injected block; {{text}} is replaced
	// with the joined chunk text. Empty means no wrapping.
	Template string `json:"template,omitempty"`

	// Tag additionally wraps the block in <tag>...</tag> markup.
	Tag string `json:"tag,omitempty"`
}

// Locked reports whether the collection is locked to the given chat or
// character identifiers.
func (c *Collection) Locked(chatID, characterID string) bool {
	for _, id := range c.Activation.ChatLocks {
		if id == chatID && chatID != "" {
			return true
		}
	}
	for _, id := range c.Activation.CharacterLocks {
		if id == characterID && characterID != "" {
			return true
		}
	}
	return false
}

// SoftBoostFor returns the effective soft-link boost for a group-generated
// link in this collection.
func (c *Collection) SoftBoostFor(g *Group) float64 {
	if g != nil && g.SoftBoost > 0 {
		return g.SoftBoost
	}
	if c.SoftLinkBoost > 0 {
		return c.SoftLinkBoost
	}
	return DefaultSoftLinkBoost
}

// ChatCollectionID is the backend collection identifier convention for
// chat-history content.
func ChatCollectionID(chatID string) string {
	return "chat_" + chatID
}
