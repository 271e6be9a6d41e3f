package rank

import (
	"math"
	"sort"
)

// DefaultRRFK is the standard reciprocal-rank-fusion constant. Larger
// values flatten the influence of rank differences; smaller values sharply
// reward top positions.
const DefaultRRFK = 60

// Display-score remap parameters. The remap converts the fusion-order
// signal into an interpretable 0-1 similarity-like value.
const (
	// signalFloor is the minimum signal considered present.
	signalFloor = 0.01

	// lexicalSaturation shapes the BM25 normalisation curve s/(s+sat).
	lexicalSaturation = 3.0

	// Dual-signal combination weights.
	dualVectorWeight  = 0.55
	dualLexicalWeight = 0.45

	// agreementBonusMax caps the bonus for dual-signal agreement.
	agreementBonusMax = 0.08

	// Single-signal confidence discounts.
	vectorOnlyDiscount  = 0.55
	lexicalOnlyDiscount = 0.6

	// rrfFallbackScale scales the rank-fraction fallback when neither
	// signal clears the floor.
	rrfFallbackScale = 0.25
)

// Ranked is one entry of a ranked list: a chunk hash with a score. Lists
// are ordered descending by score; rank is the 0-indexed position.
type Ranked struct {
	Hash  uint32
	Score float64
}

// SortRanked orders a list descending by score, ties broken by hash for
// determinism.
func SortRanked(list []Ranked) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].Hash < list[j].Hash
	})
}

// ReciprocalRankFusion merges N ranked lists by raw RRF score:
// raw(d) = sum over lists of 1/(k + rank(d) + 1), with documents absent
// from a list contributing 0 for it. The result is ordered descending.
func ReciprocalRankFusion(lists [][]Ranked, k int) []Ranked {
	if k <= 0 {
		k = DefaultRRFK
	}

	scores := make(map[uint32]float64)
	order := make([]uint32, 0)

	for _, list := range lists {
		for rnk, item := range list {
			if _, seen := scores[item.Hash]; !seen {
				order = append(order, item.Hash)
			}
			scores[item.Hash] += 1.0 / float64(k+rnk+1)
		}
	}

	merged := make([]Ranked, 0, len(order))
	for _, hash := range order {
		merged = append(merged, Ranked{Hash: hash, Score: scores[hash]})
	}
	SortRanked(merged)

	return merged
}

// NormaliseLexical maps a raw BM25 score onto [0,1) with a saturation
// curve.
func NormaliseLexical(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return score / (score + lexicalSaturation)
}

// FuseDisplay merges a vector-similarity ranking and a lexical ranking via
// RRF, then remaps each document onto a 0-1 display score:
//
//   - both signals present: 0.55*vector + 0.45*lexical with a bonus of up
//     to 8% for signal agreement;
//   - vector only: 0.55 * vector;
//   - lexical only: 0.6 * normalised lexical;
//   - neither: the RRF rank fraction scaled by 0.25.
//
// The result is re-sorted by display score (which may reorder slightly
// against raw RRF order) and capped at 1.0.
func FuseDisplay(vector, lexical []Ranked, k int) []Ranked {
	raw := ReciprocalRankFusion([][]Ranked{vector, lexical}, k)
	if len(raw) == 0 {
		return nil
	}

	vecScores := make(map[uint32]float64, len(vector))
	for _, v := range vector {
		vecScores[v.Hash] = v.Score
	}
	lexScores := make(map[uint32]float64, len(lexical))
	for _, l := range lexical {
		lexScores[l.Hash] = NormaliseLexical(l.Score)
	}

	fused := make([]Ranked, len(raw))
	for i, item := range raw {
		v := vecScores[item.Hash]
		l := lexScores[item.Hash]

		var display float64
		switch {
		case v > signalFloor && l > signalFloor:
			display = dualVectorWeight*v + dualLexicalWeight*l
			agreement := 1 - math.Abs(v-l)
			display *= 1 + agreementBonusMax*agreement
		case v > signalFloor:
			display = v * vectorOnlyDiscount
		case l > signalFloor:
			display = l * lexicalOnlyDiscount
		default:
			display = rrfFallbackScale * float64(len(raw)-i) / float64(len(raw))
		}

		if display > 1 {
			display = 1
		}
		fused[i] = Ranked{Hash: item.Hash, Score: display}
	}

	SortRanked(fused)
	return fused
}

// WeightedCombine min-max normalises both lists independently to [0,1]
// (single-element lists normalise to 0), then combines the union as
// alpha*vector + beta*lexical, sorted descending. The weights are not
// required to sum to 1.
func WeightedCombine(vector, lexical []Ranked, alpha, beta float64) []Ranked {
	vecNorm := minMaxNormalise(vector)
	lexNorm := minMaxNormalise(lexical)

	combined := make(map[uint32]float64)
	order := make([]uint32, 0, len(vecNorm)+len(lexNorm))

	for _, v := range vecNorm {
		if _, seen := combined[v.Hash]; !seen {
			order = append(order, v.Hash)
		}
		combined[v.Hash] += alpha * v.Score
	}
	for _, l := range lexNorm {
		if _, seen := combined[l.Hash]; !seen {
			order = append(order, l.Hash)
		}
		combined[l.Hash] += beta * l.Score
	}

	merged := make([]Ranked, 0, len(order))
	for _, hash := range order {
		merged = append(merged, Ranked{Hash: hash, Score: combined[hash]})
	}
	SortRanked(merged)

	return merged
}

// minMaxNormalise maps a list's scores onto [0,1]. Lists whose scores do
// not vary (including single-element lists) normalise to 0.
func minMaxNormalise(list []Ranked) []Ranked {
	if len(list) == 0 {
		return nil
	}

	lo, hi := list[0].Score, list[0].Score
	for _, item := range list[1:] {
		if item.Score < lo {
			lo = item.Score
		}
		if item.Score > hi {
			hi = item.Score
		}
	}

	out := make([]Ranked, len(list))
	span := hi - lo
	for i, item := range list {
		score := 0.0
		if span > 0 {
			score = (item.Score - lo) / span
		}
		out[i] = Ranked{Hash: item.Hash, Score: score}
	}

	return out
}
