package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShankarKakumani/eywa/internal/chunk"
)

func newTestPreparer() *Preparer {
	return NewPreparer(chunk.NewFamily(chunk.DefaultSizing()))
}

func TestPrepare_AssignsDocumentAndChunkIDs(t *testing.T) {
	p := newTestPreparer()

	prepared, err := p.Prepare(DocumentInput{SourceID: "docs", Title: "Auth", Content: "# Auth\n\nJWT flow details here."})
	require.NoError(t, err)

	require.NotEmpty(t, prepared.Document.ID)
	assert.Equal(t, "docs", prepared.Document.SourceID)
	assert.Equal(t, "Auth", prepared.Document.Title)
	assert.Equal(t, len(prepared.Chunks), prepared.Document.ChunkCount)
	require.NotEmpty(t, prepared.Chunks)

	for _, c := range prepared.Chunks {
		assert.Equal(t, prepared.Document.ID, c.DocumentID)
		assert.Equal(t, "docs", c.SourceID)
		assert.Len(t, c.ID, 64) // hex SHA-256
		assert.Equal(t, c.ID, c.ContentHash)
	}
}

func TestPrepare_SameContentSameDocIDProducesSameChunkIDs(t *testing.T) {
	p := newTestPreparer()

	input := DocumentInput{SourceID: "docs", Title: "Auth", Content: strings.Repeat("stable content body. ", 50)}

	first, err := p.PrepareWithID("doc-1", input)
	require.NoError(t, err)
	second, err := p.PrepareWithID("doc-1", input)
	require.NoError(t, err)

	require.Equal(t, len(first.Chunks), len(second.Chunks))
	for i := range first.Chunks {
		assert.Equal(t, first.Chunks[i].ID, second.Chunks[i].ID)
	}
}

func TestPrepare_DifferentDocIDsProduceDifferentChunkIDs(t *testing.T) {
	p := newTestPreparer()
	input := DocumentInput{SourceID: "docs", Title: "Auth", Content: "same text, different owners"}

	a, err := p.PrepareWithID("doc-a", input)
	require.NoError(t, err)
	b, err := p.PrepareWithID("doc-b", input)
	require.NoError(t, err)

	assert.NotEqual(t, a.Chunks[0].ID, b.Chunks[0].ID)
}

func TestPrepare_WhitespaceVariationNormalizesToSameChunkID(t *testing.T) {
	p := newTestPreparer()

	a, err := p.PrepareWithID("doc-1", DocumentInput{SourceID: "docs", Content: "alpha   beta\ngamma"})
	require.NoError(t, err)
	b, err := p.PrepareWithID("doc-1", DocumentInput{SourceID: "docs", Content: "alpha beta gamma"})
	require.NoError(t, err)

	require.Len(t, a.Chunks, 1)
	require.Len(t, b.Chunks, 1)
	assert.Equal(t, a.Chunks[0].ID, b.Chunks[0].ID)
}
