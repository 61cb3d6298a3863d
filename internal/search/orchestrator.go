package search

import (
	"context"
	"sort"

	"github.com/ShankarKakumani/eywa/internal/contentstore"
	"github.com/ShankarKakumani/eywa/internal/embed"
	"github.com/ShankarKakumani/eywa/internal/errcodes"
	"github.com/ShankarKakumani/eywa/internal/lexicalindex"
	"github.com/ShankarKakumani/eywa/internal/rerank"
	"github.com/ShankarKakumani/eywa/internal/vectorindex"
)

// Orchestrator runs the full search pipeline from spec.md §4.10: embed,
// fetch from both indices, fuse, hydrate, filter, rerank, truncate.
type Orchestrator struct {
	embedder embed.Embedder
	vectors  *vectorindex.Index
	lexical  *lexicalindex.Index
	content  *contentstore.Store
	reranker rerank.Reranker // nil means "use the keyword-boost fallback"
	keyword  *rerank.KeywordBoost

	fusionMode FusionMode
	minScore   float64
}

// New builds an orchestrator. A nil reranker falls back to keyword-boost
// reranking (spec.md §4.10 step 6).
func New(embedder embed.Embedder, vectors *vectorindex.Index, lexical *lexicalindex.Index, content *contentstore.Store, reranker rerank.Reranker) *Orchestrator {
	return &Orchestrator{
		embedder:   embedder,
		vectors:    vectors,
		lexical:    lexical,
		content:    content,
		reranker:   reranker,
		keyword:    &rerank.KeywordBoost{},
		fusionMode: FusionMaxScore,
		minScore:   DefaultMinScore,
	}
}

// WithFusionMode overrides the default max-score fusion policy.
func (o *Orchestrator) WithFusionMode(mode FusionMode) *Orchestrator {
	o.fusionMode = mode
	return o
}

// WithMinScore overrides the default 0.3 score floor.
func (o *Orchestrator) WithMinScore(minScore float64) *Orchestrator {
	o.minScore = minScore
	return o
}

// Search executes the pipeline for query, restricted to sourceID if it is
// non-empty, returning at most limit results ordered by descending score.
func (o *Orchestrator) Search(ctx context.Context, query string, limit int, sourceID string) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	qvec, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errcodes.New(errcodes.ErrCodeSearchFailed, "embedding query failed", err)
	}

	overFetch := OverFetch(limit)

	vectorMatches, err := o.vectors.SearchFiltered(ctx, qvec, overFetch, sourceID)
	if err != nil {
		return nil, errcodes.New(errcodes.ErrCodeSearchFailed, "vector search failed", err)
	}
	vectorCandidates := make([]Candidate, len(vectorMatches))
	matchByChunk := make(map[string]*vectorindex.Match, len(vectorMatches))
	for i, m := range vectorMatches {
		vectorCandidates[i] = Candidate{ChunkID: m.ChunkID, Score: float64(m.Score)}
		matchByChunk[m.ChunkID] = m
	}

	var lexicalHits []lexicalindex.Hit
	if sourceID != "" {
		lexicalHits, err = o.lexical.SearchSource(ctx, query, sourceID, overFetch)
	} else {
		lexicalHits, err = o.lexical.Search(ctx, query, overFetch)
	}
	if err != nil {
		return nil, errcodes.New(errcodes.ErrCodeSearchFailed, "lexical search failed", err)
	}
	lexicalCandidates := make([]Candidate, len(lexicalHits))
	for i, h := range lexicalHits {
		lexicalCandidates[i] = Candidate{ChunkID: h.ChunkID, Score: h.Score}
	}

	fused := Fuse(o.fusionMode, vectorCandidates, lexicalCandidates)

	chunkIDs := make([]string, len(fused))
	for i, c := range fused {
		chunkIDs[i] = c.ChunkID
	}
	contents, err := o.content.GetChunks(ctx, chunkIDs)
	if err != nil {
		return nil, errcodes.New(errcodes.ErrCodeSearchFailed, "hydrating chunks failed", err)
	}

	results := make([]Result, 0, len(fused))
	for _, c := range fused {
		text, ok := contents[c.ChunkID]
		if !ok {
			continue // content missing: I2 violation, drop and continue (spec.md §4.10 step 4)
		}
		if c.Score < o.minScore {
			continue
		}
		meta := matchByChunk[c.ChunkID]
		results = append(results, o.toResult(c.ChunkID, text, c.Score, meta))
	}

	return o.rerankAndTruncate(ctx, query, results, limit)
}

// toResult builds a Result from fused score plus whatever vector metadata
// is available; chunks found only via the lexical index carry no
// position/title metadata beyond their id and source.
func (o *Orchestrator) toResult(chunkID, content string, score float64, meta *vectorindex.Match) Result {
	r := Result{ChunkID: chunkID, Content: content, Score: score}
	if meta != nil {
		r.DocumentID = meta.DocumentID
		r.SourceID = meta.SourceID
		r.Title = meta.Title
		r.FilePath = meta.FilePath
		r.StartLine = meta.StartLine
	}
	return r
}

// rerankAndTruncate applies the cross-encoder (if configured and
// available) or the keyword-boost fallback, re-sorts, and truncates to
// limit (spec.md §4.10 steps 6-7).
func (o *Orchestrator) rerankAndTruncate(ctx context.Context, query string, results []Result, limit int) ([]Result, error) {
	if len(results) == 0 {
		return results, nil
	}

	docs := make([]string, len(results))
	baseScores := make([]float64, len(results))
	for i, r := range results {
		docs[i] = r.Content
		baseScores[i] = r.Score
	}

	if o.reranker != nil && o.reranker.Available(ctx) {
		reranked, err := o.reranker.Rerank(ctx, query, docs, 0)
		if err != nil {
			return nil, errcodes.New(errcodes.ErrCodeSearchFailed, "reranking failed", err)
		}
		return applyRerank(results, reranked, limit), nil
	}

	reranked := o.keyword.RerankScored(ctx, query, docs, baseScores, 0)
	return applyRerank(results, reranked, limit), nil
}

func applyRerank(results []Result, reranked []rerank.Result, limit int) []Result {
	out := make([]Result, len(reranked))
	for i, r := range reranked {
		orig := results[r.Index]
		orig.Score = r.Score
		out[i] = orig
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
