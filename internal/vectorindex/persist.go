package vectorindex

import (
	"bufio"
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/ShankarKakumani/eywa/internal/domain"
	"github.com/ShankarKakumani/eywa/internal/errcodes"
)

// persistedMeta is the gob-encoded companion to the HNSW graph file: the
// string<->key id maps plus every document/chunk metadata row, none of
// which coder/hnsw's own Export/Import carries. Grounded on the teacher's
// hnswMetadata (internal/store/hnsw.go), extended with the document/chunk
// rows this adapter keeps in memory alongside the graph.
type persistedMeta struct {
	Dims      int
	IDToKey   map[string]uint64
	NextKey   uint64
	Documents map[string]*domain.Document
	Chunks    map[string]*ChunkMeta
}

// Open builds a vector index for the given dimensionality, loading any
// graph + metadata previously saved at path (and path+".meta"). A missing
// pair — first run, or a data directory created before persistence
// existed — starts empty rather than failing; spec.md §4.8 only reindexes
// on a model change or marker file, not on every open, so a normal
// restart with the same model must recover the prior graph instead of
// coming back blank.
func Open(path string, dims int) (*Index, error) {
	idx := New(dims)

	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, errcodes.StorageError("opening vector index metadata", err)
	}

	var meta persistedMeta
	decodeErr := gob.NewDecoder(metaFile).Decode(&meta)
	metaFile.Close()
	if decodeErr != nil {
		return nil, errcodes.StorageError("decoding vector index metadata", decodeErr)
	}

	if meta.Dims != dims {
		// Configured model changed dimensionality since the last save;
		// engine.Open is responsible for detecting this and triggering a
		// reindex (spec.md §4.8, I5). Starting empty here is safe: the
		// reindex path resets and rebuilds from the content store.
		return idx, nil
	}

	graphFile, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, errcodes.StorageError("opening vector index graph file", err)
	}
	importErr := idx.graph.Import(bufio.NewReader(graphFile))
	graphFile.Close()
	if importErr != nil {
		return nil, errcodes.StorageError("importing vector index graph", importErr)
	}

	idx.idToKey = meta.IDToKey
	idx.nextKey = meta.NextKey
	idx.documents = meta.Documents
	idx.chunks = meta.Chunks
	idx.keyToID = make(map[uint64]string, len(meta.IDToKey))
	for id, key := range meta.IDToKey {
		idx.keyToID[key] = id
	}
	if idx.documents == nil {
		idx.documents = make(map[string]*domain.Document)
	}
	if idx.chunks == nil {
		idx.chunks = make(map[string]*ChunkMeta)
	}
	return idx, nil
}

// Save persists the graph (path) and its metadata (path+".meta")
// atomically via temp-file-then-rename, the same pattern as the teacher's
// HNSWStore.Save.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errcodes.StorageError("creating vector index directory", err)
	}

	tmpGraph := path + ".tmp"
	graphFile, err := os.Create(tmpGraph)
	if err != nil {
		return errcodes.StorageError("creating vector index graph file", err)
	}
	if err := idx.graph.Export(graphFile); err != nil {
		graphFile.Close()
		os.Remove(tmpGraph)
		return errcodes.StorageError("exporting vector index graph", err)
	}
	if err := graphFile.Close(); err != nil {
		os.Remove(tmpGraph)
		return errcodes.StorageError("closing vector index graph file", err)
	}
	if err := os.Rename(tmpGraph, path); err != nil {
		os.Remove(tmpGraph)
		return errcodes.StorageError("renaming vector index graph file", err)
	}

	meta := persistedMeta{
		Dims:      idx.dims,
		IDToKey:   idx.idToKey,
		NextKey:   idx.nextKey,
		Documents: idx.documents,
		Chunks:    idx.chunks,
	}

	tmpMeta := path + ".meta.tmp"
	metaFile, err := os.Create(tmpMeta)
	if err != nil {
		return errcodes.StorageError("creating vector index metadata file", err)
	}
	if err := gob.NewEncoder(metaFile).Encode(meta); err != nil {
		metaFile.Close()
		os.Remove(tmpMeta)
		return errcodes.StorageError("encoding vector index metadata", err)
	}
	if err := metaFile.Close(); err != nil {
		os.Remove(tmpMeta)
		return errcodes.StorageError("closing vector index metadata file", err)
	}
	return os.Rename(tmpMeta, path+".meta")
}
