package reindex

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShankarKakumani/eywa/internal/chunk"
	"github.com/ShankarKakumani/eywa/internal/contentstore"
	"github.com/ShankarKakumani/eywa/internal/ingest"
	"github.com/ShankarKakumani/eywa/internal/lexicalindex"
	"github.com/ShankarKakumani/eywa/internal/vectorindex"
)

type fakeEmbedder struct{ dims int }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, f.dims)
	vec[0] = 1
	return vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = f.Embed(ctx, texts[i])
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int                    { return f.dims }
func (f *fakeEmbedder) ModelName() string                  { return "fake" }
func (f *fakeEmbedder) Available(ctx context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                       { return nil }

func newTestRunner(t *testing.T, dataDir string) (*Runner, *contentstore.Store, *vectorindex.Index, *lexicalindex.Index) {
	t.Helper()

	cs, err := contentstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	vi := vectorindex.New(4)
	t.Cleanup(func() { _ = vi.Close() })

	li, err := lexicalindex.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = li.Close() })

	preparer := ingest.NewPreparer(chunk.NewFamily(chunk.DefaultSizing()))
	writer := ingest.NewWriter(cs, vi, li)
	pipeline := ingest.NewPipeline(preparer, &fakeEmbedder{dims: 4}, writer, ingest.BatchConfig{MaxDocs: 200, MaxChunks: 2000, MaxMemoryMB: 256})

	runner := NewRunner(dataDir, cs, vi, li, pipeline)
	return runner, cs, vi, li
}

func seedDocument(t *testing.T, runner *Runner, id, content string) {
	t.Helper()
	_, err := runner.pipeline.RunOne(context.Background(), id, ingest.DocumentInput{SourceID: "docs", Title: id, Content: content})
	require.NoError(t, err)
}

func TestRun_RebuildsIndicesFromContentStore(t *testing.T) {
	dir := t.TempDir()
	runner, _, vi, li := newTestRunner(t, dir)

	seedDocument(t, runner, "doc-1", "alpha beta gamma authentication content")
	seedDocument(t, runner, "doc-2", "delta epsilon zeta recipe content")

	require.NoError(t, vi.ResetAll())
	require.NoError(t, li.Reset(context.Background()))

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentsReindexed)

	matches, err := vi.Search(context.Background(), []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, matches)

	hits, err := li.Search(context.Background(), "authentication", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestRun_RemovesMarkerOnSuccess(t *testing.T) {
	dir := t.TempDir()
	runner, _, _, _ := newTestRunner(t, dir)
	seedDocument(t, runner, "doc-1", "some content here")

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	_, statErr := os.Stat(MarkerPath(dir))
	assert.True(t, os.IsNotExist(statErr))
	assert.False(t, NeedsReindex(dir))
}

func TestNeedsReindex_TrueWhileMarkerPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(MarkerPath(dir), nil, 0o644))

	assert.True(t, NeedsReindex(dir))
}

func TestRun_EmptyContentStoreReindexesNothing(t *testing.T) {
	dir := t.TempDir()
	runner, _, _, _ := newTestRunner(t, dir)

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentsReindexed)
}
