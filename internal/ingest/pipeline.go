package ingest

import (
	"context"

	"github.com/ShankarKakumani/eywa/internal/embed"
	"github.com/ShankarKakumani/eywa/internal/errcodes"
)

// Pipeline ties the three collaborators together: prepare each input,
// accumulate until a threshold trips, embed the whole batch in one
// forward pass, and write it. Prepare-and-embed runs lock-free; only
// WriteBatch touches the exclusive vector-index writer (spec.md §4.7).
type Pipeline struct {
	preparer    *Preparer
	embedder    embed.Embedder
	writer      *Writer
	batchConfig BatchConfig
}

// NewPipeline builds a pipeline from its collaborators.
func NewPipeline(preparer *Preparer, embedder embed.Embedder, writer *Writer, batchConfig BatchConfig) *Pipeline {
	return &Pipeline{preparer: preparer, embedder: embedder, writer: writer, batchConfig: batchConfig}
}

// Run prepares and writes every input, flushing the accumulator whenever
// a threshold trips and again at the end for whatever remains. Returns
// aggregate stats across every flush.
func (p *Pipeline) Run(ctx context.Context, inputs []DocumentInput) (WriteStats, error) {
	acc := NewAccumulator(p.batchConfig)
	var total WriteStats

	for _, input := range inputs {
		prepared, err := p.preparer.Prepare(input)
		if err != nil {
			return total, err
		}

		if acc.Add(prepared) {
			stats, err := p.flush(ctx, acc)
			if err != nil {
				return total, err
			}
			total.Merge(stats)
		}
	}

	if !acc.IsEmpty() {
		stats, err := p.flush(ctx, acc)
		if err != nil {
			return total, err
		}
		total.Merge(stats)
	}

	return total, nil
}

// RunOne prepares and writes a single input in its own batch, reusing an
// existing document id — the shape both the job-queue worker and reindex
// need (the latter via PrepareWithID).
func (p *Pipeline) RunOne(ctx context.Context, docID string, input DocumentInput) (WriteStats, error) {
	prepared, err := p.preparer.PrepareWithID(docID, input)
	if err != nil {
		return WriteStats{}, err
	}
	return p.writeOne(ctx, prepared)
}

// RunOneNewID is RunOne but assigns a fresh document id, for first-time
// ingestion outside of a multi-document batch.
func (p *Pipeline) RunOneNewID(ctx context.Context, input DocumentInput) (WriteStats, error) {
	prepared, err := p.preparer.Prepare(input)
	if err != nil {
		return WriteStats{}, err
	}
	return p.writeOne(ctx, prepared)
}

func (p *Pipeline) writeOne(ctx context.Context, prepared *PreparedDoc) (WriteStats, error) {
	acc := NewAccumulator(BatchConfig{MaxDocs: 1, MaxChunks: 1 << 30, MaxMemoryMB: 1 << 30})
	acc.Add(prepared)
	return p.flush(ctx, acc)
}

// flush embeds every chunk of the accumulated batch in one forward pass,
// then commits the batch and drains the accumulator.
func (p *Pipeline) flush(ctx context.Context, acc *Accumulator) (WriteStats, error) {
	docs := acc.Take()
	if len(docs) == 0 {
		return WriteStats{}, nil
	}

	allChunks := AllChunks(docs)
	texts := make([]string, len(allChunks))
	for i, c := range allChunks {
		texts[i] = c.Content
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return WriteStats{}, errcodes.New(errcodes.ErrCodeIngestFailed, "embedding batch failed", err)
	}

	return p.writer.WriteBatch(ctx, docs, embeddings)
}
