package ingest

import (
	"context"

	"github.com/ShankarKakumani/eywa/internal/contentstore"
	"github.com/ShankarKakumani/eywa/internal/domain"
	"github.com/ShankarKakumani/eywa/internal/errcodes"
	"github.com/ShankarKakumani/eywa/internal/lexicalindex"
	"github.com/ShankarKakumani/eywa/internal/vectorindex"
)

// WriteStats reports what a single write_batch call committed.
type WriteStats struct {
	DocumentsWritten int
	ChunksWritten    int
	DocumentIDs      []string
}

// Merge folds other into s, for callers accumulating stats across batches.
func (s *WriteStats) Merge(other WriteStats) {
	s.DocumentsWritten += other.DocumentsWritten
	s.ChunksWritten += other.ChunksWritten
	s.DocumentIDs = append(s.DocumentIDs, other.DocumentIDs...)
}

// Writer commits one accumulated batch across all three stores, in the
// order spec.md §4.7 mandates: content store, then vector index, then
// lexical index. If the vector or lexical step fails, the content store
// is already durable and the document is recoverable by reindex; if the
// content-store step fails, nothing downstream is touched.
type Writer struct {
	content *contentstore.Store
	vectors *vectorindex.Index
	lexical *lexicalindex.Index
}

// NewWriter builds a writer over the three already-open stores.
func NewWriter(content *contentstore.Store, vectors *vectorindex.Index, lexical *lexicalindex.Index) *Writer {
	return &Writer{content: content, vectors: vectors, lexical: lexical}
}

// WriteBatch commits docs (with their chunks) and the matching embeddings,
// one embedding per chunk in the same flattened order as AllChunks would
// produce. Returns the stats for what was written.
func (w *Writer) WriteBatch(ctx context.Context, docs []*PreparedDoc, embeddings [][]float32) (WriteStats, error) {
	if len(docs) == 0 {
		return WriteStats{}, nil
	}

	allChunks := AllChunks(docs)
	if len(allChunks) != len(embeddings) {
		return WriteStats{}, errcodes.ValidationError("chunk count and embedding count mismatch", nil)
	}

	stats := WriteStats{}

	// Phase 1: content store.
	for _, pd := range docs {
		if err := w.content.UpsertDocument(ctx, pd.Document); err != nil {
			return stats, err
		}
		if err := w.content.UpsertChunks(ctx, pd.Chunks); err != nil {
			return stats, err
		}
		stats.DocumentsWritten++
		stats.DocumentIDs = append(stats.DocumentIDs, pd.Document.ID)
	}

	// Phase 2: vector index — document metadata, then one bulk chunk insert.
	for _, pd := range docs {
		if err := w.vectors.InsertDocument(ctx, pd.Document); err != nil {
			return stats, err
		}
	}

	metas := make([]*vectorindex.ChunkMeta, len(allChunks))
	for i, c := range allChunks {
		metas[i] = chunkMetaFrom(c)
	}
	if err := w.vectors.InsertChunks(ctx, metas, embeddings); err != nil {
		return stats, err
	}
	stats.ChunksWritten = len(allChunks)

	// Phase 3: lexical index.
	entries := make([]*lexicalindex.Entry, len(allChunks))
	for i, c := range allChunks {
		entries[i] = &lexicalindex.Entry{
			ChunkID:  c.ID,
			SourceID: c.SourceID,
			Content:  c.Content,
			Title:    c.Title,
		}
	}
	if err := w.lexical.IndexChunks(ctx, entries); err != nil {
		return stats, err
	}

	return stats, nil
}

// AllChunks flattens the chunks of every document in docs, preserving
// document order — the same order WriteBatch expects embeddings in.
func AllChunks(docs []*PreparedDoc) []*domain.Chunk {
	var all []*domain.Chunk
	for _, pd := range docs {
		all = append(all, pd.Chunks...)
	}
	return all
}

func chunkMetaFrom(c *domain.Chunk) *vectorindex.ChunkMeta {
	return &vectorindex.ChunkMeta{
		ID:          c.ID,
		DocumentID:  c.DocumentID,
		SourceID:    c.SourceID,
		Title:       c.Title,
		FilePath:    c.FilePath,
		StartLine:   c.StartLine,
		EndLine:     c.EndLine,
		ContentHash: c.ContentHash,
		Section:     c.Section,
		Subsection:  c.Subsection,
		Hierarchy:   c.Hierarchy,
		HasCode:     c.HasCode,
	}
}
