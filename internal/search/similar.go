package search

import (
	"context"

	"github.com/ShankarKakumani/eywa/internal/errcodes"
)

// Similar finds documents related to docID: embeds the document's own
// content, searches the vector index, excludes chunks belonging to the
// same document, hydrates, reranks against the full source document text,
// and returns the top-k (spec.md §4.10 "Similar-documents operation").
func (o *Orchestrator) Similar(ctx context.Context, docID string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	doc, err := o.content.GetDocument(ctx, docID)
	if err != nil {
		return nil, errcodes.New(errcodes.ErrCodeSearchFailed, "loading document for similarity search failed", err)
	}
	if doc == nil {
		return nil, errcodes.New(errcodes.ErrCodeDocumentNotFound, "document not found", nil)
	}

	qvec, err := o.embedder.Embed(ctx, doc.Content)
	if err != nil {
		return nil, errcodes.New(errcodes.ErrCodeSearchFailed, "embedding document failed", err)
	}

	overFetch := OverFetch(limit)
	matches, err := o.vectors.Search(ctx, qvec, overFetch)
	if err != nil {
		return nil, errcodes.New(errcodes.ErrCodeSearchFailed, "vector search failed", err)
	}

	chunkIDs := make([]string, 0, len(matches))
	byChunk := make(map[string]int, len(matches))
	for i, m := range matches {
		if m.DocumentID == docID {
			continue
		}
		byChunk[m.ChunkID] = i
		chunkIDs = append(chunkIDs, m.ChunkID)
	}

	contents, err := o.content.GetChunks(ctx, chunkIDs)
	if err != nil {
		return nil, errcodes.New(errcodes.ErrCodeSearchFailed, "hydrating chunks failed", err)
	}

	results := make([]Result, 0, len(chunkIDs))
	for _, chunkID := range chunkIDs {
		text, ok := contents[chunkID]
		if !ok {
			continue
		}
		m := matches[byChunk[chunkID]]
		results = append(results, Result{
			ChunkID:    m.ChunkID,
			DocumentID: m.DocumentID,
			SourceID:   m.SourceID,
			Title:      m.Title,
			FilePath:   m.FilePath,
			StartLine:  m.StartLine,
			Content:    text,
			Score:      float64(m.Score),
		})
	}

	return o.rerankAndTruncate(ctx, doc.Content, results, limit)
}
