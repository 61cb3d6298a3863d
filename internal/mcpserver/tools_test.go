package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShankarKakumani/eywa/internal/config"
	"github.com/ShankarKakumani/eywa/internal/engine"
	"github.com/ShankarKakumani/eywa/internal/ingest"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.ModelServerURL = ""
	cfg.RerankerModel = ""

	eng, err := engine.Open(context.Background(), t.TempDir(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	_, err = eng.Ingest.RunOneNewID(context.Background(), ingest.DocumentInput{
		SourceID: "docs",
		Title:    "Auth Guide",
		Content:  "JWT authentication tokens are verified on every request.",
	})
	require.NoError(t, err)

	return New(eng)
}

func TestHandleSearch_ReturnsResults(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleSearch(context.Background(), nil, SearchInput{Query: "authentication"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Results)
}

func TestHandleSearch_EmptyQueryRejected(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.handleSearch(context.Background(), nil, SearchInput{Query: ""})
	require.Error(t, err)
}

func TestHandleListSources_ReturnsIngestedSource(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleListSources(context.Background(), nil, ListSourcesInput{})
	require.NoError(t, err)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "docs", out.Sources[0].SourceID)
}

func TestHandleListDocuments_ReturnsDocumentSummary(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleListDocuments(context.Background(), nil, ListDocumentsInput{})
	require.NoError(t, err)
	require.Len(t, out.Documents, 1)
	assert.Equal(t, "Auth Guide", out.Documents[0].Title)
}

func TestHandleGetDocument_UnknownIDReturnsNotFound(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.handleGetDocument(context.Background(), nil, GetDocumentInput{DocumentID: "missing"})
	require.Error(t, err)
}

func TestHandleGetDocument_KnownIDReturnsContent(t *testing.T) {
	s := newTestServer(t)

	_, listOut, err := s.handleListDocuments(context.Background(), nil, ListDocumentsInput{})
	require.NoError(t, err)
	require.NotEmpty(t, listOut.Documents)

	_, doc, err := s.handleGetDocument(context.Background(), nil, GetDocumentInput{DocumentID: listOut.Documents[0].DocumentID})
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "JWT")
}

func TestHandleSimilarDocs_MissingIDRejected(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.handleSimilarDocs(context.Background(), nil, SimilarDocsInput{DocumentID: ""})
	require.Error(t, err)
}
