package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeModelServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		vec := make([]float32, dims)
		for i := range vec {
			vec[i] = 1.0
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(embedResponse{Embedding: vec}))
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func TestHTTPEmbedder_EmbedReturnsNormalizedVector(t *testing.T) {
	srv := newFakeModelServer(t, 384)
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "bge-small-en", 384)
	vec, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	require.Len(t, vec, 384)

	var sumSquares float32
	for _, v := range vec {
		sumSquares += v * v
	}
	assert.InDelta(t, 1.0, sumSquares, 1e-3)
}

func TestHTTPEmbedder_DimensionMismatchErrors(t *testing.T) {
	srv := newFakeModelServer(t, 768)
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "bge-small-en", 384)
	_, err := e.Embed(context.Background(), "hello world")
	assert.Error(t, err)
}

func TestHTTPEmbedder_ServerErrorPropagates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "bge-small-en", 384)
	_, err := e.Embed(context.Background(), "hello world")
	assert.Error(t, err)
}

func TestHTTPEmbedder_AvailableChecksTagsEndpoint(t *testing.T) {
	srv := newFakeModelServer(t, 384)
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "bge-small-en", 384)
	assert.True(t, e.Available(context.Background()))

	e.Close()
	assert.False(t, e.Available(context.Background()))
}

func TestHTTPEmbedder_EmbedBatchCallsEachText(t *testing.T) {
	srv := newFakeModelServer(t, 384)
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "bge-small-en", 384)
	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
}

func TestHTTPEmbedder_EmbedAfterCloseErrors(t *testing.T) {
	srv := newFakeModelServer(t, 384)
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "bge-small-en", 384)
	require.NoError(t, e.Close())
	_, err := e.Embed(context.Background(), "hello")
	assert.Error(t, err)
}
