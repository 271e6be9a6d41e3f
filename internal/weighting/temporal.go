// Package weighting applies age-dependent score multipliers to chat-origin
// chunks: decay (recency-favouring), nostalgia (history-favouring) and the
// scene-aware age computation that resets apparent staleness at narrative
// breaks.
package weighting

import (
	"math"
	"sort"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// decayBase is the exponential decay base: a chunk one half-life old keeps
// half its relevance.
const decayBase = 0.5

// Multiplier returns the score factor for a chunk of the given age under
// cfg. Disabled configs and unknown types return 1.0. Age is measured in
// messages and never negative.
func Multiplier(cfg domain.TemporalConfig, age float64) float64 {
	if !cfg.Enabled {
		return 1.0
	}
	if age < 0 {
		age = 0
	}

	switch cfg.Type {
	case domain.TemporalDecay:
		return decayMultiplier(cfg, age)
	case domain.TemporalNostalgia:
		return nostalgiaMultiplier(cfg, age)
	default:
		return 1.0
	}
}

// decayMultiplier computes max(floor, curve(age)). The floor is a hard
// lower bound: decayed relevance never reaches zero.
func decayMultiplier(cfg domain.TemporalConfig, age float64) float64 {
	floor := cfg.Floor
	if floor <= 0 {
		floor = domain.DefaultDecayFloor
	}

	var m float64
	switch cfg.Mode {
	case domain.TemporalLinear:
		m = 1 - age*cfg.Rate
		if m < 0 {
			m = 0
		}
	default:
		halfLife := cfg.HalfLife
		if halfLife <= 0 {
			halfLife = domain.DefaultHalfLife
		}
		m = math.Pow(decayBase, age/halfLife)
	}

	if m < floor {
		return floor
	}
	return m
}

// nostalgiaMultiplier is the inverse curve: it rises with age and
// asymptotically approaches MaxBoost without ever exceeding it.
func nostalgiaMultiplier(cfg domain.TemporalConfig, age float64) float64 {
	maxBoost := cfg.MaxBoost
	if maxBoost <= 1 {
		return 1.0
	}

	switch cfg.Mode {
	case domain.TemporalLinear:
		m := 1 + age*cfg.Rate
		if m > maxBoost {
			return maxBoost
		}
		return m
	default:
		halfLife := cfg.HalfLife
		if halfLife <= 0 {
			halfLife = domain.DefaultHalfLife
		}
		return 1 + (maxBoost-1)*(1-math.Pow(decayBase, age/halfLife))
	}
}

// Age returns the effective age of a chunk at chunkIndex seen from
// currentIndex. In scene-aware mode, when both positions lie within
// (possibly different) known scenes, age is computed relative to the start
// of the chunk's own scene rather than absolute chat position.
func Age(cfg domain.TemporalConfig, chunkIndex, currentIndex int, sceneBreaks []int) float64 {
	if cfg.SceneAware && len(sceneBreaks) > 0 {
		chunkScene, chunkOK := sceneStart(chunkIndex, sceneBreaks)
		_, currentOK := sceneStart(currentIndex, sceneBreaks)
		if chunkOK && currentOK {
			return float64(chunkIndex - chunkScene)
		}
	}

	age := currentIndex - chunkIndex
	if age < 0 {
		age = 0
	}
	return float64(age)
}

// sceneStart returns the start index of the scene containing index, and
// whether index lies within any known scene.
func sceneStart(index int, sceneBreaks []int) (int, bool) {
	sorted := make([]int, len(sceneBreaks))
	copy(sorted, sceneBreaks)
	sort.Ints(sorted)

	start, found := 0, false
	for _, b := range sorted {
		if b > index {
			break
		}
		start, found = b, true
	}
	return start, found
}

// Apply weights a single chunk in place and records the trace step.
// Chunks flagged temporally blind bypass weighting entirely; this is the
// only opt-out and is checked before any age computation. Chunks without a
// chat origin are likewise untouched.
func Apply(chunk *domain.Chunk, cfg domain.TemporalConfig, currentIndex int, sceneBreaks []int) {
	if !cfg.Enabled || chunk.TemporallyBlind || chunk.MessageIndex == domain.NoMessageIndex {
		return
	}

	age := Age(cfg, chunk.MessageIndex, currentIndex, sceneBreaks)
	m := Multiplier(cfg, age)
	if m != 1.0 {
		chunk.ApplyFactor("temporal."+string(cfg.Type), m, "")
	}
}
