// Package rerank scores query/document pairs for relevance, either via a
// cross-encoder model server or a keyword-overlap fallback when no
// reranker is configured.
package rerank

import "context"

// Result is a single reranked document with its relevance score.
type Result struct {
	// Index is the document's position in the input slice passed to Rerank.
	Index int
	// Score is the relevance score. Cross-encoder scores lie in [0,1];
	// keyword-boost scores are the fused search score plus a bonus and
	// are not bounded to [0,1].
	Score float64
	// Document is the original document text.
	Document string
}

// Reranker scores and reorders documents by relevance to a query.
type Reranker interface {
	// Rerank scores documents against query and returns them sorted by
	// score descending. Ties are broken by input order (stable). If
	// topK > 0 the result is truncated to that length. Empty input
	// returns empty output.
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]Result, error)

	// Available reports whether the reranker's backing service (if any)
	// can currently serve requests.
	Available(ctx context.Context) bool

	// Close releases resources held by the reranker.
	Close() error
}

// rerankTopK applies the stable-sort-then-truncate contract shared by
// every Reranker implementation.
func rerankTopK(results []Result, topK int) []Result {
	stableSortByScoreDesc(results)
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results
}

func stableSortByScoreDesc(results []Result) {
	// insertion sort: stable and documents per call are small (tens, not
	// thousands), so O(n^2) is not a concern here.
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}
