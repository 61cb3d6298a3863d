package ingest

// BatchConfig holds the three flush thresholds: any one tripping forces a
// write-batch (spec.md §4.7, grounded on the original pipeline's
// BatchAccumulator).
type BatchConfig struct {
	MaxDocs     int
	MaxChunks   int
	MaxMemoryMB int
}

// perFieldOverheadDoc approximates the bookkeeping cost of a document's
// struct fields, so memory estimation isn't pure string-length summing.
const perFieldOverheadDoc = 32

// perFieldOverheadChunk is the same idea, per chunk.
const perFieldOverheadChunk = 48

// Accumulator buffers PreparedDocs until MaxDocs, MaxChunks, or
// MaxMemoryMB is reached, then hands the whole batch to a writer in one
// shot to avoid fragmenting the vector index with small inserts.
type Accumulator struct {
	docs        []*PreparedDoc
	totalChunks int
	memoryBytes int
	config      BatchConfig
}

// NewAccumulator builds an empty accumulator with the given thresholds.
func NewAccumulator(config BatchConfig) *Accumulator {
	return &Accumulator{config: config}
}

// Add appends a prepared document and reports whether the batch should
// now be flushed.
func (a *Accumulator) Add(doc *PreparedDoc) bool {
	a.totalChunks += len(doc.Chunks)
	a.memoryBytes += estimateDocMemory(doc)
	a.docs = append(a.docs, doc)
	return a.ShouldFlush()
}

// ShouldFlush reports whether any threshold has been reached.
func (a *Accumulator) ShouldFlush() bool {
	return len(a.docs) >= a.config.MaxDocs ||
		a.totalChunks >= a.config.MaxChunks ||
		a.memoryBytes >= a.config.MaxMemoryMB*1024*1024
}

// DocumentCount returns how many documents are currently buffered.
func (a *Accumulator) DocumentCount() int { return len(a.docs) }

// ChunkCount returns the total chunk count across buffered documents.
func (a *Accumulator) ChunkCount() int { return a.totalChunks }

// MemoryUsage returns the estimated buffered memory, in bytes.
func (a *Accumulator) MemoryUsage() int { return a.memoryBytes }

// IsEmpty reports whether nothing is buffered.
func (a *Accumulator) IsEmpty() bool { return len(a.docs) == 0 }

// Take drains and resets the accumulator, returning everything buffered.
func (a *Accumulator) Take() []*PreparedDoc {
	docs := a.docs
	a.docs = nil
	a.totalChunks = 0
	a.memoryBytes = 0
	return docs
}

func estimateDocMemory(doc *PreparedDoc) int {
	d := doc.Document
	size := len(d.Content) + len(d.Title) + len(d.FilePath) + len(d.ID) + len(d.CreatedAt.Format("2006-01-02T15:04:05.999999999Z07:00")) + perFieldOverheadDoc

	for _, c := range doc.Chunks {
		size += len(c.Content) + len(c.ID) + len(c.DocumentID) + len(c.SourceID) +
			len(c.Title) + len(c.FilePath) + len(c.ContentHash) + perFieldOverheadChunk
	}
	return size
}
