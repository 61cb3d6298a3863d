package search

import "sort"

// DefaultRRFConstant is the standard RRF smoothing parameter, k=60,
// empirically validated across domains (used by Azure AI Search,
// OpenSearch, etc.) — the same constant the teacher's fusion.go uses.
const DefaultRRFConstant = 60

// Candidate is one ranked hit from either the vector index or the
// lexical index, before fusion.
type Candidate struct {
	ChunkID string
	Score   float64
}

// FusionMode selects how Fuse combines the two candidate lists.
type FusionMode string

const (
	// FusionMaxScore is the default: if a chunk id appears in both
	// lists, keep the max of the two normalized scores; otherwise
	// carry the single score (spec.md §4.10 step 3).
	FusionMaxScore FusionMode = "max_score"
	// FusionRRF is the alternate policy: reciprocal-rank fusion with
	// k=60 (spec.md §4.10 step 3, alternative acceptable policy).
	FusionRRF FusionMode = "rrf"
)

// Fuse combines vector and lexical candidate lists per mode, returning
// chunk ids with fused scores, sorted by score descending then chunk id
// ascending.
func Fuse(mode FusionMode, vector, lexical []Candidate) []Candidate {
	if mode == FusionRRF {
		return fuseRRF(vector, lexical, DefaultRRFConstant)
	}
	return fuseMaxScore(vector, lexical)
}

// fuseMaxScore implements spec.md §4.10 step 3's default fusion rule.
func fuseMaxScore(vector, lexical []Candidate) []Candidate {
	normVector := normalizeScores(vector)
	normLexical := normalizeScores(lexical)

	scores := make(map[string]float64, len(normVector)+len(normLexical))
	for _, c := range normVector {
		scores[c.ChunkID] = c.Score
	}
	for _, c := range normLexical {
		if existing, ok := scores[c.ChunkID]; ok {
			if c.Score > existing {
				scores[c.ChunkID] = c.Score
			}
		} else {
			scores[c.ChunkID] = c.Score
		}
	}

	return sortedCandidates(scores)
}

// fuseRRF is Reciprocal Rank Fusion: RRF_score(d) = sum 1/(k+rank_i)
// across every list d appears in, 1-indexed rank. Grounded on the
// teacher's internal/search/fusion.go RRFFusion.Fuse.
func fuseRRF(vector, lexical []Candidate, k int) []Candidate {
	scores := make(map[string]float64, len(vector)+len(lexical))
	for rank, c := range vector {
		scores[c.ChunkID] += 1.0 / float64(k+rank+1)
	}
	for rank, c := range lexical {
		scores[c.ChunkID] += 1.0 / float64(k+rank+1)
	}

	results := sortedCandidates(scores)
	normalizeInPlace(results)
	return results
}

func sortedCandidates(scores map[string]float64) []Candidate {
	out := make([]Candidate, 0, len(scores))
	for id, score := range scores {
		out = append(out, Candidate{ChunkID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}

// normalizeScores scales a ranked list so its maximum score becomes 1.0,
// preserving relative order and zero-score inputs.
func normalizeScores(in []Candidate) []Candidate {
	if len(in) == 0 {
		return in
	}
	maxScore := in[0].Score
	for _, c := range in {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	if maxScore <= 0 {
		return in
	}
	out := make([]Candidate, len(in))
	for i, c := range in {
		out[i] = Candidate{ChunkID: c.ChunkID, Score: c.Score / maxScore}
	}
	return out
}

func normalizeInPlace(results []Candidate) {
	if len(results) == 0 {
		return
	}
	maxScore := results[0].Score
	if maxScore <= 0 {
		return
	}
	for i := range results {
		results[i].Score /= maxScore
	}
}
