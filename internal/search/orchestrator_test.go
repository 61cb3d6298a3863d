package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShankarKakumani/eywa/internal/chunk"
	"github.com/ShankarKakumani/eywa/internal/contentstore"
	"github.com/ShankarKakumani/eywa/internal/ingest"
	"github.com/ShankarKakumani/eywa/internal/lexicalindex"
	"github.com/ShankarKakumani/eywa/internal/vectorindex"
)

const testDims = 4

// fakeEmbedder returns a unit vector whose direction is chosen by the
// presence of "auth" in the text, so vector search has something
// meaningful to rank by without a real model.
type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if contains(text, "auth") {
		return []float32{1, 0, 0, 0}, nil
	}
	return []float32{0, 1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.Embed(ctx, t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int                    { return testDims }
func (f *fakeEmbedder) ModelName() string                  { return "fake" }
func (f *fakeEmbedder) Available(ctx context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                       { return nil }

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if equalFold(s[i:i+len(sub)], sub) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func newSeededOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()

	cs, err := contentstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	vi := vectorindex.New(testDims)
	t.Cleanup(func() { _ = vi.Close() })

	li, err := lexicalindex.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = li.Close() })

	embedder := &fakeEmbedder{}
	preparer := ingest.NewPreparer(chunk.NewFamily(chunk.DefaultSizing()))
	writer := ingest.NewWriter(cs, vi, li)
	pipeline := ingest.NewPipeline(preparer, embedder, writer, ingest.BatchConfig{MaxDocs: 200, MaxChunks: 2000, MaxMemoryMB: 256})

	_, err = pipeline.RunOne(context.Background(), "doc-auth", ingest.DocumentInput{
		SourceID: "docs", Title: "Auth Guide", Content: "JWT authentication flow and token refresh explained in detail here.",
	})
	require.NoError(t, err)

	_, err = pipeline.RunOne(context.Background(), "doc-cook", ingest.DocumentInput{
		SourceID: "docs", Title: "Recipes", Content: "A recipe for baking bread with yeast and flour and water.",
	})
	require.NoError(t, err)

	return New(embedder, vi, li, cs, nil)
}

func TestSearch_ReturnsRelevantResultAboveMinScore(t *testing.T) {
	o := newSeededOrchestrator(t)

	results, err := o.Search(context.Background(), "authentication", 5, "")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Content, "authentication")
}

func TestSearch_RestrictsToSourceID(t *testing.T) {
	o := newSeededOrchestrator(t)

	results, err := o.Search(context.Background(), "authentication", 5, "docs")
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "docs", r.SourceID)
	}
}

func TestSearch_SourceFilterExcludesOtherSources(t *testing.T) {
	o := newSeededOrchestrator(t)

	results, err := o.Search(context.Background(), "authentication", 5, "other-source")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ResultsAreDescendingByScore(t *testing.T) {
	o := newSeededOrchestrator(t)

	results, err := o.Search(context.Background(), "bread yeast authentication token", 10, "")
	require.NoError(t, err)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearch_TruncatesToLimit(t *testing.T) {
	o := newSeededOrchestrator(t)

	results, err := o.Search(context.Background(), "authentication", 1, "")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 1)
}

func TestSearch_RRFFusionModeProducesResults(t *testing.T) {
	o := newSeededOrchestrator(t).WithFusionMode(FusionRRF)

	results, err := o.Search(context.Background(), "authentication token", 5, "")
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestSearch_MinScoreFiltersWeakMatches(t *testing.T) {
	o := newSeededOrchestrator(t).WithMinScore(1.1) // above any attainable score

	results, err := o.Search(context.Background(), "authentication", 5, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}
