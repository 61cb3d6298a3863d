package rerank

import "context"

// NoOpReranker returns documents in their original order, assigning
// decreasing scores so downstream sorting is a no-op. Used in tests and
// wherever reranking is explicitly disabled.
type NoOpReranker struct{}

var _ Reranker = (*NoOpReranker)(nil)

func (n *NoOpReranker) Rerank(_ context.Context, _ string, documents []string, topK int) ([]Result, error) {
	results := make([]Result, len(documents))
	for i, doc := range documents {
		results[i] = Result{Index: i, Score: 1.0 - float64(i)*0.0001, Document: doc}
	}
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (n *NoOpReranker) Available(_ context.Context) bool { return true }

func (n *NoOpReranker) Close() error { return nil }
