package lexicalindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestIndexChunksAndSearch_FindsMatchingContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexChunks(ctx, []*Entry{
		{ChunkID: "c1", SourceID: "docs", Content: "JWT authentication flow", Title: "Auth"},
		{ChunkID: "c2", SourceID: "docs", Content: "unrelated cooking content", Title: "Recipes"},
	}))

	hits, err := idx.Search(ctx, "authentication", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ChunkID)
}

func TestSearch_EmptyQueryReturnsEmptyNotError(t *testing.T) {
	idx := newTestIndex(t)
	hits, err := idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchSource_RestrictsToSourceID(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexChunks(ctx, []*Entry{
		{ChunkID: "c1", SourceID: "a", Content: "token refresh logic"},
		{ChunkID: "c2", SourceID: "b", Content: "token refresh logic"},
	}))

	hits, err := idx.SearchSource(ctx, "token", "a", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ChunkID)
}

func TestDeleteChunk_RemovesFromSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexChunks(ctx, []*Entry{{ChunkID: "c1", SourceID: "docs", Content: "unique token phrase"}}))
	require.NoError(t, idx.DeleteChunk(ctx, "c1"))

	hits, err := idx.Search(ctx, "unique", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDeleteSource_RemovesAllItsChunks(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexChunks(ctx, []*Entry{
		{ChunkID: "c1", SourceID: "a", Content: "alpha beta gamma"},
		{ChunkID: "c2", SourceID: "b", Content: "alpha beta gamma"},
	}))

	require.NoError(t, idx.DeleteSource(ctx, "a"))

	hits, err := idx.Search(ctx, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c2", hits[0].ChunkID)
}

func TestReset_ClearsAllEntries(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexChunks(ctx, []*Entry{{ChunkID: "c1", SourceID: "a", Content: "some words here"}}))
	require.NoError(t, idx.Reset(ctx))

	hits, err := idx.Search(ctx, "words", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndexChunks_EmptyIsNoOp(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexChunks(context.Background(), nil))
}
