package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashes(list []Ranked) []uint32 {
	out := make([]uint32, len(list))
	for i, r := range list {
		out[i] = r.Hash
	}
	return out
}

func TestRRF_SingleListPreservesOrder(t *testing.T) {
	listA := []Ranked{{Hash: 10, Score: 0.9}, {Hash: 20, Score: 0.5}, {Hash: 30, Score: 0.1}}

	merged := ReciprocalRankFusion([][]Ranked{listA}, DefaultRRFK)

	assert.Equal(t, []uint32{10, 20, 30}, hashes(merged))
}

func TestRRF_KSensitivity(t *testing.T) {
	// For a single-list, single-document input the raw score strictly
	// decreases as k increases.
	list := []Ranked{{Hash: 1, Score: 0.5}}

	prev := 2.0
	for _, k := range []int{10, 60, 120, 500} {
		merged := ReciprocalRankFusion([][]Ranked{list}, k)
		require.Len(t, merged, 1)
		assert.Less(t, merged[0].Score, prev)
		prev = merged[0].Score
	}
}

func TestRRF_AbsentListContributesZero(t *testing.T) {
	a := []Ranked{{Hash: 1, Score: 0.9}}
	b := []Ranked{{Hash: 1, Score: 5.0}, {Hash: 2, Score: 4.0}}

	merged := ReciprocalRankFusion([][]Ranked{a, b}, 60)
	require.Len(t, merged, 2)

	// Hash 1 is rank 0 in both lists, hash 2 rank 1 in one list.
	assert.Equal(t, uint32(1), merged[0].Hash)
	assert.InDelta(t, 2.0/61.0, merged[0].Score, 1e-9)
	assert.InDelta(t, 1.0/62.0, merged[1].Score, 1e-9)
}

func TestFuseDisplay_MergeScenario(t *testing.T) {
	vector := []Ranked{{Hash: 1, Score: 0.9}, {Hash: 2, Score: 0.7}, {Hash: 3, Score: 0.5}}
	lexical := []Ranked{{Hash: 2, Score: 5}, {Hash: 3, Score: 4}, {Hash: 4, Score: 3}}

	fused := FuseDisplay(vector, lexical, 60)

	require.Len(t, fused, 4)
	assert.ElementsMatch(t, []uint32{1, 2, 3, 4}, hashes(fused))

	// Hash 2 carries both signals (rank 1 vector, rank 0 lexical) and the
	// dual-signal bonus; it outranks the vector-only hash 1.
	pos := make(map[uint32]int)
	for i, r := range fused {
		pos[r.Hash] = i
	}
	assert.Less(t, pos[2], pos[1])
}

func TestFuseDisplay_DualSignalMonotonicity(t *testing.T) {
	vector := []Ranked{{Hash: 1, Score: 0.8}}

	vectorOnly := FuseDisplay(vector, nil, 60)
	require.Len(t, vectorOnly, 1)

	both := FuseDisplay(vector, []Ranked{{Hash: 1, Score: 2.0}}, 60)
	require.Len(t, both, 1)

	assert.GreaterOrEqual(t, both[0].Score, vectorOnly[0].Score)
}

func TestFuseDisplay_ScoreBound(t *testing.T) {
	vector := []Ranked{
		{Hash: 1, Score: 1.0}, {Hash: 2, Score: 0.99}, {Hash: 3, Score: 0.4},
		{Hash: 4, Score: 0.005},
	}
	lexical := []Ranked{
		{Hash: 1, Score: 100}, {Hash: 2, Score: 50}, {Hash: 5, Score: 0.001},
	}

	for _, r := range FuseDisplay(vector, lexical, 60) {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestFuseDisplay_SingleSignalDiscounts(t *testing.T) {
	vectorOnly := FuseDisplay([]Ranked{{Hash: 1, Score: 0.8}}, nil, 60)
	require.Len(t, vectorOnly, 1)
	assert.InDelta(t, 0.8*0.55, vectorOnly[0].Score, 1e-9)

	lexicalOnly := FuseDisplay(nil, []Ranked{{Hash: 1, Score: 3.0}}, 60)
	require.Len(t, lexicalOnly, 1)
	assert.InDelta(t, 0.5*0.6, lexicalOnly[0].Score, 1e-9) // 3/(3+3)=0.5
}

func TestFuseDisplay_RankFractionFallback(t *testing.T) {
	// Signals below the floor fall back to the RRF rank fraction.
	vector := []Ranked{{Hash: 1, Score: 0.001}, {Hash: 2, Score: 0.0005}}

	fused := FuseDisplay(vector, nil, 60)
	require.Len(t, fused, 2)
	assert.InDelta(t, 0.25*2.0/2.0, fused[0].Score, 1e-9)
	assert.InDelta(t, 0.25*1.0/2.0, fused[1].Score, 1e-9)
}

func TestFuseDisplay_Empty(t *testing.T) {
	assert.Empty(t, FuseDisplay(nil, nil, 60))
}

func TestNormaliseLexical(t *testing.T) {
	assert.Zero(t, NormaliseLexical(0))
	assert.Zero(t, NormaliseLexical(-1))
	assert.InDelta(t, 0.5, NormaliseLexical(3), 1e-9)
	assert.Less(t, NormaliseLexical(1000), 1.0)
}

func TestWeightedCombine(t *testing.T) {
	vector := []Ranked{{Hash: 1, Score: 0.9}, {Hash: 2, Score: 0.5}, {Hash: 3, Score: 0.1}}
	lexical := []Ranked{{Hash: 2, Score: 8}, {Hash: 4, Score: 2}}

	merged := WeightedCombine(vector, lexical, 0.5, 0.5)

	require.Len(t, merged, 4)
	assert.ElementsMatch(t, []uint32{1, 2, 3, 4}, hashes(merged))

	// Hash 2: vector norm (0.5-0.1)/0.8 = 0.5, lexical norm 1.0.
	assert.Equal(t, uint32(2), merged[0].Hash)
	assert.InDelta(t, 0.5*0.5+0.5*1.0, merged[0].Score, 1e-9)
}

func TestWeightedCombine_SingleElementNormalisesToZero(t *testing.T) {
	merged := WeightedCombine([]Ranked{{Hash: 1, Score: 0.9}}, nil, 0.5, 0.5)
	require.Len(t, merged, 1)
	assert.Zero(t, merged[0].Score)
}
