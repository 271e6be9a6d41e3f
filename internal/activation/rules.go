package activation

import (
	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// EvaluatorFunc is a pure predicate over the search context for one rule
// kind. Evaluators must not mutate the context and must tolerate missing
// or mistyped settings by returning false.
type EvaluatorFunc func(rule domain.ConditionRule, sc *domain.SearchContext) bool

// Registry maps condition-rule kinds to their evaluators. New kinds are
// added by registration, not branching.
type Registry struct {
	evaluators map[string]EvaluatorFunc
}

// NewRegistry creates an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{
		evaluators: make(map[string]EvaluatorFunc),
	}
}

// Register adds an evaluator for a rule kind.
func (r *Registry) Register(kind string, eval EvaluatorFunc) {
	r.evaluators[kind] = eval
}

// Has returns true if an evaluator for the kind is registered.
func (r *Registry) Has(kind string) bool {
	_, ok := r.evaluators[kind]
	return ok
}

// Kinds returns all registered rule kinds.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.evaluators))
	for kind := range r.evaluators {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Evaluate runs one rule against the context. Unknown kinds evaluate
// false; the Negate flag inverts the evaluator's verdict.
func (r *Registry) Evaluate(rule domain.ConditionRule, sc *domain.SearchContext) bool {
	eval, ok := r.evaluators[rule.Kind]
	if !ok {
		logger.Warn("Unknown condition rule kind %q (evaluates false)", rule.Kind)
		return false
	}

	verdict := eval(rule, sc)
	if rule.Negate {
		return !verdict
	}
	return verdict
}

// EvaluateSet combines a rule set under its configured logic. Disabled or
// empty sets match nothing: the caller decides the default.
func (r *Registry) EvaluateSet(cfg *domain.ConditionConfig, sc *domain.SearchContext) bool {
	if cfg == nil || !cfg.Enabled || len(cfg.Rules) == 0 {
		return false
	}

	if cfg.Logic == domain.LogicOr {
		for _, rule := range cfg.Rules {
			if r.Evaluate(rule, sc) {
				return true
			}
		}
		return false
	}

	// AND is the default combinator.
	for _, rule := range cfg.Rules {
		if !r.Evaluate(rule, sc) {
			return false
		}
	}
	return true
}
