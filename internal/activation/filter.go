// Package activation decides whether collections and chunks participate in
// a query: trigger-keyword scanning over the recent message window,
// pluggable rule-based conditions, and chat/character locks, resolved in a
// strict priority order.
package activation

import (
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Decision is the outcome of an activation check with its deciding branch,
// recorded in the run's audit trail.
type Decision struct {
	Active bool
	Reason string
}

// Deciding branches.
const (
	ReasonDisabled     = "disabled"
	ReasonAlwaysActive = "always_active"
	ReasonLocked       = "locked"
	ReasonTriggers     = "triggers"
	ReasonConditions   = "conditions"
	ReasonDefault      = "default_inactive"
)

// Filter evaluates activation for collections and chunks against one
// search context.
type Filter struct {
	rules *Registry
}

// NewFilter creates a filter backed by the given rule registry.
// A nil registry falls back to the built-in default kinds.
func NewFilter(rules *Registry) *Filter {
	if rules == nil {
		rules = DefaultRegistry()
	}
	return &Filter{rules: rules}
}

// CollectionActive decides whether a collection participates in the query.
// Branches short-circuit in strict priority order: disabled, always-active,
// lock, triggers, conditions, default-inactive. Exactly one branch decides.
func (f *Filter) CollectionActive(col *domain.Collection, sc *domain.SearchContext) Decision {
	if !col.Enabled {
		return Decision{Active: false, Reason: ReasonDisabled}
	}

	cfg := &col.Activation

	if cfg.AlwaysActive {
		return Decision{Active: true, Reason: ReasonAlwaysActive}
	}

	if col.Locked(sc.ChatID, sc.CharacterID) {
		return Decision{Active: true, Reason: ReasonLocked}
	}

	if len(cfg.Triggers) > 0 {
		if matchTriggers(cfg, sc.Messages) {
			return Decision{Active: true, Reason: ReasonTriggers}
		}
		// Configured triggers that fail only fall through to conditions
		// when a fallback condition set exists.
		if !conditionsConfigured(&cfg.Conditions) {
			return Decision{Active: false, Reason: ReasonTriggers}
		}
	}

	if conditionsConfigured(&cfg.Conditions) {
		if f.rules.EvaluateSet(&cfg.Conditions, sc) {
			return Decision{Active: true, Reason: ReasonConditions}
		}
		return Decision{Active: false, Reason: ReasonConditions}
	}

	return Decision{Active: false, Reason: ReasonDefault}
}

// ChunkActive decides whether a single chunk participates. Chunks reuse
// the trigger/condition machinery minus lock overrides; chunks without any
// gating configured are visible by default.
func (f *Filter) ChunkActive(chunk *domain.Chunk, sc *domain.SearchContext) Decision {
	if chunk.Conditions == nil {
		return Decision{Active: true, Reason: ReasonDefault}
	}
	if !chunk.Conditions.Enabled {
		return Decision{Active: true, Reason: ReasonDisabled}
	}

	if f.rules.EvaluateSet(chunk.Conditions, sc) {
		if sc.History != nil {
			sc.History.Record(chunk.Hash, sc.CurrentIndex)
		}
		return Decision{Active: true, Reason: ReasonConditions}
	}

	logger.Debug("Chunk %d gated out by conditions", chunk.Hash)
	return Decision{Active: false, Reason: ReasonConditions}
}

// conditionsConfigured reports whether a rule set is enabled and non-empty.
func conditionsConfigured(cfg *domain.ConditionConfig) bool {
	return cfg != nil && cfg.Enabled && len(cfg.Rules) > 0
}
