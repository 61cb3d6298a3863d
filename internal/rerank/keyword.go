package rerank

import (
	"context"
	"strings"
)

const (
	keywordBoostPerTerm = 0.05
	keywordBoostCap     = 0.2
)

// KeywordBoost reranks by adding a small per-matched-term bonus on top of
// each document's existing fused score, used when no cross-encoder is
// configured. It never calls a model server and is always Available.
type KeywordBoost struct{}

var _ Reranker = (*KeywordBoost)(nil)

// RerankScored boosts a set of already-scored documents (e.g. fused
// search scores) by keyword overlap with query, returning them re-sorted.
// This is the entry point the search orchestrator uses, since the plain
// Rerank method below treats every document as starting at score 0.
func (k *KeywordBoost) RerankScored(_ context.Context, query string, documents []string, baseScores []float64, topK int) []Result {
	terms := strings.Fields(strings.ToLower(query))
	results := make([]Result, len(documents))
	for i, doc := range documents {
		results[i] = Result{
			Index:    i,
			Score:    baseScores[i] + boostFor(doc, terms),
			Document: doc,
		}
	}
	return rerankTopK(results, topK)
}

func boostFor(doc string, terms []string) float64 {
	lowerDoc := strings.ToLower(doc)
	var boost float64
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lowerDoc, term) {
			boost += keywordBoostPerTerm
		}
	}
	if boost > keywordBoostCap {
		boost = keywordBoostCap
	}
	return boost
}

// Rerank implements Reranker by treating every document as starting from
// score 0, so the output ranks purely by keyword overlap. Most callers
// that already have fused scores should use RerankScored instead.
func (k *KeywordBoost) Rerank(ctx context.Context, query string, documents []string, topK int) ([]Result, error) {
	baseScores := make([]float64, len(documents))
	return k.RerankScored(ctx, query, documents, baseScores, topK), nil
}

func (k *KeywordBoost) Available(_ context.Context) bool { return true }

func (k *KeywordBoost) Close() error { return nil }
