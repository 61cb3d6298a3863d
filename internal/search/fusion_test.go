package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuse_MaxScore_TakesMaxWhenChunkInBothLists(t *testing.T) {
	vector := []Candidate{{ChunkID: "a", Score: 0.5}, {ChunkID: "b", Score: 0.4}}
	lexical := []Candidate{{ChunkID: "a", Score: 0.9}, {ChunkID: "c", Score: 0.3}}

	fused := Fuse(FusionMaxScore, vector, lexical)

	byID := map[string]float64{}
	for _, c := range fused {
		byID[c.ChunkID] = c.Score
	}
	// each list is max-normalized first, so "a" is 1.0 in both (0.5/0.5, 0.9/0.9)
	assert.InDelta(t, 1.0, byID["a"], 0.001)
	assert.Contains(t, byID, "b")
	assert.Contains(t, byID, "c")
}

func TestFuse_MaxScore_OrdersDescendingThenChunkIDAscending(t *testing.T) {
	vector := []Candidate{{ChunkID: "z", Score: 1.0}, {ChunkID: "a", Score: 1.0}}

	fused := Fuse(FusionMaxScore, vector, nil)
	requireOrdered(t, fused)
	assert.Equal(t, "a", fused[0].ChunkID)
}

func TestFuse_RRF_CombinesBothListsAndNormalizes(t *testing.T) {
	vector := []Candidate{{ChunkID: "a", Score: 0.9}, {ChunkID: "b", Score: 0.5}}
	lexical := []Candidate{{ChunkID: "a", Score: 10}, {ChunkID: "c", Score: 5}}

	fused := Fuse(FusionRRF, vector, lexical)

	requireOrdered(t, fused)
	assert.Equal(t, "a", fused[0].ChunkID) // appears in both lists, ranked first in each
	assert.InDelta(t, 1.0, fused[0].Score, 0.0001)
}

func TestFuse_EmptyListsReturnsEmpty(t *testing.T) {
	fused := Fuse(FusionMaxScore, nil, nil)
	assert.Empty(t, fused)
}

func requireOrdered(t *testing.T, candidates []Candidate) {
	t.Helper()
	for i := 1; i < len(candidates); i++ {
		if candidates[i-1].Score == candidates[i].Score {
			assert.LessOrEqual(t, candidates[i-1].ChunkID, candidates[i].ChunkID)
		} else {
			assert.Greater(t, candidates[i-1].Score, candidates[i].Score)
		}
	}
}

func TestOverFetch_UsesLargerOfFloorAnd2xLimit(t *testing.T) {
	assert.Equal(t, DefaultOverFetchMin, OverFetch(5))
	assert.Equal(t, 200, OverFetch(100))
}
