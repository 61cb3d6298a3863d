// Package engine wires every component of the eywa retrieval engine
// together: config, embedder, reranker, the three stores, the job queue,
// the ingest pipeline, the reindex runner, and the search orchestrator.
// It owns the data directory's single-writer lock for the lifetime of
// the process (spec.md §5 "process-wide state with lifecycle").
package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/ShankarKakumani/eywa/internal/chunk"
	"github.com/ShankarKakumani/eywa/internal/config"
	"github.com/ShankarKakumani/eywa/internal/contentstore"
	"github.com/ShankarKakumani/eywa/internal/embed"
	"github.com/ShankarKakumani/eywa/internal/errcodes"
	"github.com/ShankarKakumani/eywa/internal/ingest"
	"github.com/ShankarKakumani/eywa/internal/jobqueue"
	"github.com/ShankarKakumani/eywa/internal/lexicalindex"
	"github.com/ShankarKakumani/eywa/internal/reindex"
	"github.com/ShankarKakumani/eywa/internal/rerank"
	"github.com/ShankarKakumani/eywa/internal/search"
	"github.com/ShankarKakumani/eywa/internal/vectorindex"
)

const lockFileName = ".eywa.lock"

// vectorIndexPath is the on-disk location of the HNSW graph file; its
// companion metadata file lives alongside it at the same path plus
// ".meta" (internal/vectorindex.Open/Save).
func vectorIndexPath(dataDir string) string {
	return filepath.Join(dataDir, "vectors.hnsw")
}

// Engine is the "AppState" of spec.md §9: it exclusively owns the
// embedder, reranker, vector index, lexical index, and job queue, and
// wires the ingest/reindex/search operations over them.
type Engine struct {
	dataDir string
	lock    *flock.Flock

	Config  *config.Config
	Content *contentstore.Store
	Vectors *vectorindex.Index
	Lexical *lexicalindex.Index
	Jobs    *jobqueue.Queue

	Embedder embed.Embedder
	Reranker rerank.Reranker

	Ingest  *ingest.Pipeline
	Reindex *reindex.Runner
	Search  *search.Orchestrator
}

// Open builds an Engine rooted at dataDir, acquiring the data directory's
// advisory single-writer lock (spec.md Non-goal "no cross-process
// concurrent writers" enforced via gofrs/flock, the same dependency the
// teacher uses for its own model-download lock in internal/embed/lock.go).
// The lock is held exclusively for the process's lifetime; Close releases
// it.
func Open(ctx context.Context, dataDir string, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errcodes.StorageError("creating data directory", err)
	}

	lock := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errcodes.StorageError("acquiring data directory lock", err)
	}
	if !locked {
		return nil, errcodes.New(errcodes.ErrCodeStoreUnavailable,
			"data directory is locked by another eywa process", nil)
	}

	content, err := contentstore.Open(filepath.Join(dataDir, "content.db"))
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	vectors, err := vectorindex.Open(vectorIndexPath(dataDir), cfg.EmbeddingModel.Dimensions())
	if err != nil {
		_ = content.Close()
		_ = lock.Unlock()
		return nil, err
	}

	lexical, err := lexicalindex.Open(filepath.Join(dataDir, "tantivy"))
	if err != nil {
		_ = vectors.Close()
		_ = content.Close()
		_ = lock.Unlock()
		return nil, err
	}

	jobs, err := jobqueue.Open(filepath.Join(dataDir, "jobs.db"))
	if err != nil {
		_ = lexical.Close()
		_ = vectors.Close()
		_ = content.Close()
		_ = lock.Unlock()
		return nil, err
	}

	embedder := buildEmbedder(ctx, cfg)
	reranker := buildReranker(ctx, cfg)

	preparerFamily := chunk.NewFamily(chunk.Sizing{
		TargetSize: cfg.Chunking.TargetSize,
		MinChunk:   cfg.Chunking.MinChunk,
		Overlap:    cfg.Chunking.Overlap,
	})
	writer := ingest.NewWriter(content, vectors, lexical)
	pipeline := ingest.NewPipeline(
		ingest.NewPreparer(preparerFamily),
		embedder,
		writer,
		ingest.BatchConfig{MaxDocs: cfg.Ingest.MaxDocs, MaxChunks: cfg.Ingest.MaxChunks, MaxMemoryMB: cfg.Ingest.MaxMemoryMB},
	)

	reindexRunner := reindex.NewRunner(dataDir, content, vectors, lexical, pipeline)

	orchestrator := search.New(embedder, vectors, lexical, content, reranker).
		WithFusionMode(toSearchFusionMode(cfg.Search.FusionMode)).
		WithMinScore(cfg.MinScore)

	return &Engine{
		dataDir:  dataDir,
		lock:     lock,
		Config:   cfg,
		Content:  content,
		Vectors:  vectors,
		Lexical:  lexical,
		Jobs:     jobs,
		Embedder: embedder,
		Reranker: reranker,
		Ingest:   pipeline,
		Reindex:  reindexRunner,
		Search:   orchestrator,
	}, nil
}

// buildEmbedder wires an HTTP embedder against the configured model
// server, LRU-cached (spec.md §4.2), falling back to the static
// hash-based embedder when no model server is reachable (SPEC_FULL.md §C).
func buildEmbedder(ctx context.Context, cfg *config.Config) embed.Embedder {
	if cfg.ModelServerURL == "" {
		return embed.NewStaticEmbedder(cfg.EmbeddingModel.Dimensions())
	}

	httpEmbedder := embed.NewHTTPEmbedder(cfg.ModelServerURL, string(cfg.EmbeddingModel), cfg.EmbeddingModel.Dimensions())
	if !httpEmbedder.Available(ctx) {
		return embed.NewStaticEmbedder(cfg.EmbeddingModel.Dimensions())
	}
	return embed.NewCachedEmbedder(httpEmbedder, embed.DefaultEmbeddingCacheSize)
}

// buildReranker wires a cross-encoder client when a reranker model and
// server are configured and reachable; otherwise returns nil, which tells
// search.Orchestrator to fall back to keyword-boost reranking (spec.md
// §4.10 step 6).
func buildReranker(ctx context.Context, cfg *config.Config) rerank.Reranker {
	if cfg.RerankerModel == "" || cfg.ModelServerURL == "" {
		return nil
	}
	crossEncoder := rerank.NewCrossEncoder(cfg.ModelServerURL, string(cfg.RerankerModel))
	if !crossEncoder.Available(ctx) {
		return nil
	}
	return crossEncoder
}

func toSearchFusionMode(mode config.FusionMode) search.FusionMode {
	if mode == config.FusionRRF {
		return search.FusionRRF
	}
	return search.FusionMaxScore
}

// Close releases every owned resource and unlocks the data directory.
// Safe to call once; callers should not use the Engine afterward.
func (e *Engine) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(e.Embedder.Close())
	if e.Reranker != nil {
		record(e.Reranker.Close())
	}
	record(e.Jobs.Close())
	record(e.Lexical.Close())
	record(e.Vectors.Save(vectorIndexPath(e.dataDir)))
	record(e.Vectors.Close())
	record(e.Content.Close())
	record(e.lock.Unlock())

	return firstErr
}

// DataDir returns the directory this engine was opened against.
func (e *Engine) DataDir() string {
	return e.dataDir
}
