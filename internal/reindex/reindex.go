// Package reindex rebuilds the vector and lexical indices from the
// content store, used when the configured embedding model changes or a
// previous reindex was interrupted (spec.md §4.8). The content store is
// the source of truth and is never reset; only its derived indices are.
package reindex

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ShankarKakumani/eywa/internal/contentstore"
	"github.com/ShankarKakumani/eywa/internal/errcodes"
	"github.com/ShankarKakumani/eywa/internal/ingest"
	"github.com/ShankarKakumani/eywa/internal/lexicalindex"
	"github.com/ShankarKakumani/eywa/internal/vectorindex"
)

// markerFileName is the crash-survival sentinel: its presence at startup
// means a prior reindex run never reached its final step.
const markerFileName = ".reindex_in_progress"

// MarkerPath returns the marker file location for a given data directory.
func MarkerPath(dataDir string) string {
	return filepath.Join(dataDir, markerFileName)
}

// NeedsReindex reports whether the marker file from a previous,
// interrupted reindex is still present at dataDir.
func NeedsReindex(dataDir string) bool {
	_, err := os.Stat(MarkerPath(dataDir))
	return err == nil
}

// Stats reports what a reindex run rebuilt.
type Stats struct {
	DocumentsReindexed int
	ChunksReindexed    int
}

// Runner rebuilds the vector and lexical indices over every document
// currently in the content store.
type Runner struct {
	dataDir  string
	content  *contentstore.Store
	vectors  *vectorindex.Index
	lexical  *lexicalindex.Index
	pipeline *ingest.Pipeline
}

// NewRunner builds a reindex runner around the already-open stores and
// pipeline. dataDir is where the marker file is written.
func NewRunner(dataDir string, content *contentstore.Store, vectors *vectorindex.Index, lexical *lexicalindex.Index, pipeline *ingest.Pipeline) *Runner {
	return &Runner{dataDir: dataDir, content: content, vectors: vectors, lexical: lexical, pipeline: pipeline}
}

// Run executes the full reindex path from spec.md §4.8:
//  1. create the marker file
//  2. snapshot the document set from the content store
//  3. reset the vector and lexical indices
//  4. re-run the ingest pipeline per document, reusing its id/source/title/file path
//  5. remove the marker file on success
//
// The marker is left in place if any step fails, so a subsequent call to
// NeedsReindex reports true and a retry can pick the run back up.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	if err := r.createMarker(); err != nil {
		return Stats{}, err
	}

	docIDs, err := r.content.AllDocumentIDs(ctx)
	if err != nil {
		return Stats{}, err
	}

	if err := r.vectors.ResetAll(); err != nil {
		return Stats{}, err
	}
	if err := r.lexical.Reset(ctx); err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, docID := range docIDs {
		doc, err := r.content.GetDocument(ctx, docID)
		if err != nil {
			return stats, err
		}
		if doc == nil {
			continue // deleted between snapshot and this point; nothing to reindex
		}

		writeStats, err := r.pipeline.RunOne(ctx, doc.ID, ingest.DocumentInput{
			SourceID: doc.SourceID,
			Title:    doc.Title,
			Content:  doc.Content,
			FilePath: doc.FilePath,
		})
		if err != nil {
			return stats, err
		}
		stats.DocumentsReindexed += writeStats.DocumentsWritten
		stats.ChunksReindexed += writeStats.ChunksWritten
	}

	if err := r.removeMarker(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (r *Runner) createMarker() error {
	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return errcodes.StorageError("creating data directory for reindex marker", err)
	}
	if err := os.WriteFile(MarkerPath(r.dataDir), nil, 0o644); err != nil {
		return errcodes.StorageError("writing reindex marker", err)
	}
	return nil
}

func (r *Runner) removeMarker() error {
	err := os.Remove(MarkerPath(r.dataDir))
	if err != nil && !os.IsNotExist(err) {
		return errcodes.StorageError("removing reindex marker", err)
	}
	return nil
}
