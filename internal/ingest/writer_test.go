package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShankarKakumani/eywa/internal/contentstore"
	"github.com/ShankarKakumani/eywa/internal/lexicalindex"
	"github.com/ShankarKakumani/eywa/internal/vectorindex"
)

func newTestStores(t *testing.T) (*contentstore.Store, *vectorindex.Index, *lexicalindex.Index) {
	t.Helper()
	cs, err := contentstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	vi := vectorindex.New(4)
	t.Cleanup(func() { _ = vi.Close() })

	li, err := lexicalindex.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = li.Close() })

	return cs, vi, li
}

func TestWriteBatch_CommitsAcrossAllThreeStores(t *testing.T) {
	cs, vi, li := newTestStores(t)
	w := NewWriter(cs, vi, li)
	ctx := context.Background()

	p := newTestPreparer()
	prepared, err := p.PrepareWithID("doc-1", DocumentInput{SourceID: "docs", Title: "Auth", Content: "JWT authentication flow described here."})
	require.NoError(t, err)

	embeddings := make([][]float32, len(prepared.Chunks))
	for i := range embeddings {
		embeddings[i] = []float32{1, 0, 0, 0}
	}

	stats, err := w.WriteBatch(ctx, []*PreparedDoc{prepared}, embeddings)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentsWritten)
	assert.Equal(t, len(prepared.Chunks), stats.ChunksWritten)
	assert.Equal(t, []string{"doc-1"}, stats.DocumentIDs)

	gotDoc, err := cs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, gotDoc)

	matches, err := vi.Search(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, len(prepared.Chunks))

	hits, err := li.Search(ctx, "authentication", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestWriteBatch_EmptyIsNoOp(t *testing.T) {
	cs, vi, li := newTestStores(t)
	w := NewWriter(cs, vi, li)

	stats, err := w.WriteBatch(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, WriteStats{}, stats)
}

func TestWriteBatch_EmbeddingCountMismatchErrors(t *testing.T) {
	cs, vi, li := newTestStores(t)
	w := NewWriter(cs, vi, li)

	p := newTestPreparer()
	prepared, err := p.PrepareWithID("doc-1", DocumentInput{SourceID: "docs", Content: "some content for a chunk"})
	require.NoError(t, err)

	_, err = w.WriteBatch(context.Background(), []*PreparedDoc{prepared}, nil)
	assert.Error(t, err)
}

func TestAllChunks_FlattensPreservingOrder(t *testing.T) {
	a := makeDoc("d1", 2, 5)
	b := makeDoc("d2", 3, 5)

	all := AllChunks([]*PreparedDoc{a, b})
	require.Len(t, all, 5)
	assert.Equal(t, "d1", all[0].DocumentID)
	assert.Equal(t, "d2", all[4].DocumentID)
}
