// Package search is the orchestrator: it embeds the query, fetches
// candidates from both the vector and lexical indices, fuses them,
// hydrates chunk content from the content store, filters by score, reranks,
// and returns the final ordered result list (spec.md §4.10).
package search

// Result is a single search hit, ready to hand back to a caller.
type Result struct {
	ChunkID    string
	DocumentID string
	SourceID   string
	Title      string
	FilePath   string
	StartLine  int
	EndLine    int
	Content    string
	Score      float64
}

// DefaultMinScore is the floor a fused score must clear, before reranking,
// to survive into the final result list (spec.md §4.10 step 5).
const DefaultMinScore = 0.3

// DefaultOverFetchMin is the minimum candidate count requested from each
// index, independent of how small the caller's limit is.
const DefaultOverFetchMin = 50

// OverFetch computes the over-fetch count for a given limit: at least
// DefaultOverFetchMin, or 2x the limit, whichever is larger (spec.md §9
// Open Question 2).
func OverFetch(limit int) int {
	n := limit * 2
	if n < DefaultOverFetchMin {
		return DefaultOverFetchMin
	}
	return n
}
