// Package vectorindex is the approximate-nearest-neighbor adapter over
// chunk embeddings, backed by an in-process HNSW graph plus the document
// and chunk metadata tables that ride alongside it (spec.md §4.5).
package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/ShankarKakumani/eywa/internal/domain"
	"github.com/ShankarKakumani/eywa/internal/errcodes"
)

// ChunkMeta is a chunk's metadata row, embedding excluded (the embedding
// lives only inside the HNSW graph).
type ChunkMeta struct {
	ID          string
	DocumentID  string
	SourceID    string
	Title       string
	FilePath    string
	StartLine   int
	EndLine     int
	ContentHash string
	Section     string
	Subsection  string
	Hierarchy   []string
	HasCode     bool
}

// Match is a single search hit: chunk metadata plus its similarity score.
type Match struct {
	ChunkID    string
	DocumentID string
	SourceID   string
	Title      string
	FilePath   string
	StartLine  int
	Score      float32
}

// SourceSummary is an entry in list_sources: source id plus chunk count.
type SourceSummary struct {
	SourceID   string
	ChunkCount int
}

// Index is the ANN adapter: one HNSW graph of L2-normalized embeddings
// plus metadata tables for documents and chunks.
type Index struct {
	mu sync.RWMutex

	dims  int
	graph *hnsw.Graph[uint64]

	idToKey map[string]uint64
	keyToID map[uint64]string
	nextKey uint64

	documents map[string]*domain.Document
	chunks    map[string]*ChunkMeta

	closed bool
}

// New builds an empty vector index for embeddings of the given
// dimensionality. Every recognized model in spec.md uses 384 or 768.
func New(dims int) *Index {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &Index{
		dims:      dims,
		graph:     graph,
		idToKey:   make(map[string]uint64),
		keyToID:   make(map[uint64]string),
		documents: make(map[string]*domain.Document),
		chunks:    make(map[string]*ChunkMeta),
	}
}

// InsertDocument writes a document metadata row (upsert by id).
func (idx *Index) InsertDocument(ctx context.Context, doc *domain.Document) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return errcodes.StorageError("inserting document metadata", errClosed)
	}
	idx.documents[doc.ID] = doc
	return nil
}

// InsertChunks writes chunk metadata plus embeddings for an entire batch
// in one physical graph update, as required by spec.md §4.5 (one bulk
// write per call, to avoid index fragmentation).
func (idx *Index) InsertChunks(ctx context.Context, metas []*ChunkMeta, embeddings [][]float32) error {
	if len(metas) == 0 {
		return nil
	}
	if len(metas) != len(embeddings) {
		return errcodes.ValidationError("chunk metadata and embedding count mismatch", nil)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return errcodes.StorageError("inserting chunks", errClosed)
	}

	for _, emb := range embeddings {
		if len(emb) != idx.dims {
			return errcodes.New(errcodes.ErrCodeDimensionMismatch, "embedding dimension mismatch", nil)
		}
	}

	nodes := make([]hnsw.Node[uint64], 0, len(metas))
	for i, meta := range metas {
		if existingKey, ok := idx.idToKey[meta.ID]; ok {
			// Lazy delete: orphan the old key rather than mutating the
			// graph in place, which coder/hnsw does not support safely.
			delete(idx.keyToID, existingKey)
		}

		key := idx.nextKey
		idx.nextKey++

		vec := normalizeCopy(embeddings[i])
		nodes = append(nodes, hnsw.MakeNode(key, vec))

		idx.idToKey[meta.ID] = key
		idx.keyToID[key] = meta.ID
		idx.chunks[meta.ID] = meta
	}

	for _, n := range nodes {
		idx.graph.Add(n)
	}
	return nil
}

// Search returns the k nearest chunks to queryVec, ties broken by chunk
// id lexicographic ascending (spec.md §4.5 Ordering).
func (idx *Index) Search(ctx context.Context, queryVec []float32, k int) ([]*Match, error) {
	return idx.SearchFiltered(ctx, queryVec, k, "")
}

// SearchFiltered is Search restricted to a single source id. An empty
// sourceID disables the filter.
func (idx *Index) SearchFiltered(ctx context.Context, queryVec []float32, k int, sourceID string) ([]*Match, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, errcodes.StorageError("searching vector index", errClosed)
	}
	if len(queryVec) != idx.dims {
		return nil, errcodes.New(errcodes.ErrCodeDimensionMismatch, "query vector dimension mismatch", nil)
	}
	if idx.graph.Len() == 0 {
		return []*Match{}, nil
	}

	normalized := normalizeCopy(queryVec)

	// Over-fetch from the graph so that post-filtering by source (or
	// dropping orphaned keys) still leaves enough candidates for k.
	fetchK := k * 4
	if sourceID != "" && fetchK < 200 {
		fetchK = 200
	}
	if fetchK < k {
		fetchK = k
	}

	nodes := idx.graph.Search(normalized, fetchK)

	matches := make([]*Match, 0, len(nodes))
	for _, node := range nodes {
		chunkID, ok := idx.keyToID[node.Key]
		if !ok {
			continue
		}
		meta, ok := idx.chunks[chunkID]
		if !ok {
			continue
		}
		if sourceID != "" && meta.SourceID != sourceID {
			continue
		}

		distance := idx.graph.Distance(normalized, node.Value)
		score := 1.0 - distance/2.0

		matches = append(matches, &Match{
			ChunkID:    meta.ID,
			DocumentID: meta.DocumentID,
			SourceID:   meta.SourceID,
			Title:      meta.Title,
			FilePath:   meta.FilePath,
			StartLine:  meta.StartLine,
			Score:      score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// ListSources returns every source id present with its chunk count.
func (idx *Index) ListSources() []*SourceSummary {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	counts := make(map[string]int)
	for id, meta := range idx.chunks {
		if _, live := idx.idToKey[id]; !live {
			continue
		}
		counts[meta.SourceID]++
	}

	summaries := make([]*SourceSummary, 0, len(counts))
	for sourceID, count := range counts {
		summaries = append(summaries, &SourceSummary{SourceID: sourceID, ChunkCount: count})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].SourceID < summaries[j].SourceID })
	return summaries
}

// ListDocuments returns document metadata rows for a source, newest-first,
// capped at limit (0 = unlimited).
func (idx *Index) ListDocuments(sourceID string, limit int) []*domain.Document {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var docs []*domain.Document
	for _, doc := range idx.documents {
		if doc.SourceID == sourceID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}

// GetDocument returns a document's metadata row, or nil if absent.
func (idx *Index) GetDocument(id string) *domain.Document {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.documents[id]
}

// DeleteDocument removes a document's metadata row and every chunk that
// belongs to it (lazy deletion from the graph).
func (idx *Index) DeleteDocument(documentID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.documents, documentID)
	for id, meta := range idx.chunks {
		if meta.DocumentID == documentID {
			idx.removeChunkLocked(id)
		}
	}
}

// DeleteSource removes every document and chunk belonging to a source.
func (idx *Index) DeleteSource(sourceID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for id, doc := range idx.documents {
		if doc.SourceID == sourceID {
			delete(idx.documents, id)
		}
	}
	for id, meta := range idx.chunks {
		if meta.SourceID == sourceID {
			idx.removeChunkLocked(id)
		}
	}
}

// ResetAll drops every document, chunk, and graph entry.
func (idx *Index) ResetAll() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return errcodes.StorageError("resetting vector index", errClosed)
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	idx.graph = graph
	idx.idToKey = make(map[string]uint64)
	idx.keyToID = make(map[uint64]string)
	idx.documents = make(map[string]*domain.Document)
	idx.chunks = make(map[string]*ChunkMeta)
	idx.nextKey = 0
	return nil
}

func (idx *Index) removeChunkLocked(chunkID string) {
	if key, ok := idx.idToKey[chunkID]; ok {
		delete(idx.keyToID, key)
		delete(idx.idToKey, chunkID)
	}
	delete(idx.chunks, chunkID)
}

// Close releases the index. Subsequent operations return an error.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
	return nil
}

func normalizeCopy(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	var sumSquares float64
	for _, x := range out {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return out
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range out {
		out[i] *= inv
	}
	return out
}

var errClosed = errClosedError{}

type errClosedError struct{}

func (errClosedError) Error() string { return "vector index is closed" }
