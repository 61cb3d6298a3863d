// Package lexicalindex is the BM25 inverted index over chunk content and
// title, backed by bleve/v2 (spec.md §4.6). Writes are single-writer,
// multi-reader: every mutation commits and then refreshes the reader
// snapshot bleve exposes internally.
package lexicalindex

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/ShankarKakumani/eywa/internal/errcodes"
)

// Entry is a chunk to index: stored chunk_id/source_id fields plus
// analyzed content/title fields.
type Entry struct {
	ChunkID  string
	SourceID string
	Content  string
	Title    string
}

// Hit is a single search result: chunk id and BM25 score.
type Hit struct {
	ChunkID string
	Score   float64
}

// bleveDoc is the mapped document shape. chunk_id/source_id are stored
// verbatim (not analyzed); content/title go through the default analyzer.
type bleveDoc struct {
	ChunkID  string `json:"chunk_id"`
	SourceID string `json:"source_id"`
	Content  string `json:"content"`
	Title    string `json:"title"`
}

// Index wraps a bleve index opened over a directory (or in-memory).
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// Open creates or opens the lexical index at path. An empty path opens
// an in-memory index, used by tests.
func Open(path string) (*Index, error) {
	idxMapping := buildMapping()

	if path == "" {
		idx, err := bleve.NewMemOnly(idxMapping)
		if err != nil {
			return nil, errcodes.StorageError("creating in-memory lexical index", err)
		}
		return &Index{index: idx}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errcodes.StorageError("creating lexical index directory", err)
	}

	idx, err := openWithLockRecovery(path, idxMapping)
	if err != nil {
		return nil, err
	}
	return &Index{index: idx, path: path}, nil
}

// openWithLockRecovery opens or creates the index at path. If the open
// fails because of a stale lock, the known lock files are removed once
// and the open is retried exactly one time (spec.md §4.6).
func openWithLockRecovery(path string, idxMapping *mapping.IndexMappingImpl) (bleve.Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, idxMapping)
		if err != nil {
			return nil, errcodes.StorageError("creating lexical index", err)
		}
		return idx, nil
	}
	if err == nil {
		return idx, nil
	}
	if !isStaleLockError(err) {
		return nil, errcodes.StorageError("opening lexical index", err)
	}

	removeKnownLockFiles(path)

	idx, err = bleve.Open(path)
	if err != nil {
		idx, err = bleve.New(path, idxMapping)
		if err != nil {
			return nil, errcodes.StorageError("reopening lexical index after lock recovery", err)
		}
	}
	return idx, nil
}

func isStaleLockError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "lock") || strings.Contains(msg, "LOCK")
}

func removeKnownLockFiles(path string) {
	for _, name := range []string{"LOCK", "lock"} {
		_ = os.Remove(filepath.Join(path, name))
	}
}

func buildMapping() *mapping.IndexMappingImpl {
	contentField := bleve.NewTextFieldMapping()
	titleField := bleve.NewTextFieldMapping()

	storedNotAnalyzed := bleve.NewTextFieldMapping()
	storedNotAnalyzed.Analyzer = "keyword"
	storedNotAnalyzed.Store = true
	storedNotAnalyzed.Index = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("content", contentField)
	docMapping.AddFieldMappingsAt("title", titleField)
	docMapping.AddFieldMappingsAt("chunk_id", storedNotAnalyzed)
	docMapping.AddFieldMappingsAt("source_id", storedNotAnalyzed)

	idxMapping := bleve.NewIndexMapping()
	idxMapping.DefaultMapping = docMapping
	return idxMapping
}

// IndexChunks appends entries, commits, and refreshes the reader snapshot.
func (idx *Index) IndexChunks(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return errcodes.StorageError("indexing chunks", errIndexClosed)
	}

	batch := idx.index.NewBatch()
	for _, e := range entries {
		doc := bleveDoc{ChunkID: e.ChunkID, SourceID: e.SourceID, Content: e.Content, Title: e.Title}
		if err := batch.Index(e.ChunkID, doc); err != nil {
			return errcodes.StorageError("adding chunk to batch", err)
		}
	}
	if err := idx.index.Batch(batch); err != nil {
		return errcodes.StorageError("committing chunk batch", err)
	}
	return nil
}

// Search parses query against content and title. An unparseable query
// yields an empty result, not an error (spec.md §4.6).
func (idx *Index) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	return idx.search(ctx, query, k, "")
}

// SearchSource is Search ANDed with an exact source_id term filter.
func (idx *Index) SearchSource(ctx context.Context, query, sourceID string, k int) ([]Hit, error) {
	return idx.search(ctx, query, k, sourceID)
}

func (idx *Index) search(ctx context.Context, query string, k int, sourceID string) ([]Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, errcodes.StorageError("searching lexical index", errIndexClosed)
	}
	if strings.TrimSpace(query) == "" {
		return []Hit{}, nil
	}

	contentQuery := bleve.NewDisjunctionQuery(
		newFieldMatchQuery(query, "content"),
		newFieldMatchQuery(query, "title"),
	)

	var finalQuery = contentQuery
	if sourceID != "" {
		sourceTerm := bleve.NewTermQuery(sourceID)
		sourceTerm.SetField("source_id")
		finalQuery = bleve.NewConjunctionQuery(contentQuery, sourceTerm)
	}

	req := bleve.NewSearchRequest(finalQuery)
	req.Size = k
	if k <= 0 {
		req.Size = 10
	}

	result, err := idx.index.SearchInContext(ctx, req)
	if err != nil {
		// An unparseable query is reported as an empty result, not an error.
		return []Hit{}, nil
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, Hit{ChunkID: h.ID, Score: h.Score})
	}
	return hits, nil
}

func newFieldMatchQuery(text, field string) *bleve.MatchQuery {
	q := bleve.NewMatchQuery(text)
	q.SetField(field)
	return q
}

// DeleteSource removes every chunk belonging to a source, by term query.
func (idx *Index) DeleteSource(ctx context.Context, sourceID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return errcodes.StorageError("deleting source from lexical index", errIndexClosed)
	}

	sourceTerm := bleve.NewTermQuery(sourceID)
	sourceTerm.SetField("source_id")
	req := bleve.NewSearchRequest(sourceTerm)
	req.Size = 10000
	req.Fields = nil

	result, err := idx.index.Search(req)
	if err != nil {
		return errcodes.StorageError("finding chunks for source delete", err)
	}

	batch := idx.index.NewBatch()
	for _, h := range result.Hits {
		batch.Delete(h.ID)
	}
	if err := idx.index.Batch(batch); err != nil {
		return errcodes.StorageError("committing source delete batch", err)
	}
	return nil
}

// DeleteChunk removes a single chunk by id.
func (idx *Index) DeleteChunk(ctx context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return errcodes.StorageError("deleting chunk from lexical index", errIndexClosed)
	}
	if err := idx.index.Delete(chunkID); err != nil {
		return errcodes.StorageError("deleting chunk", err)
	}
	return nil
}

// Reset deletes every document in the index.
func (idx *Index) Reset(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return errcodes.StorageError("resetting lexical index", errIndexClosed)
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	docCount, _ := idx.index.DocCount()
	req.Size = int(docCount)
	req.Fields = nil

	result, err := idx.index.Search(req)
	if err != nil {
		return errcodes.StorageError("listing documents for reset", err)
	}

	batch := idx.index.NewBatch()
	for _, h := range result.Hits {
		batch.Delete(h.ID)
	}
	if err := idx.index.Batch(batch); err != nil {
		return errcodes.StorageError("committing reset batch", err)
	}
	return nil
}

// Close releases the underlying bleve index.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true
	return idx.index.Close()
}

var errIndexClosed = indexClosedError{}

type indexClosedError struct{}

func (indexClosedError) Error() string { return "lexical index is closed" }
