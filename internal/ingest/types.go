// Package ingest turns raw document inputs into rows in all three stores:
// content store, vector index, lexical index. It is split into the three
// collaborators spec.md §4.7 names: a preparer (chunk + assign stable ids),
// an accumulator (buffer until a batch threshold trips), and a writer
// (commit one batch atomically, store by store).
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShankarKakumani/eywa/internal/chunk"
	"github.com/ShankarKakumani/eywa/internal/domain"
)

// DocumentInput is what a caller hands to the pipeline: a source id plus
// raw content and optional metadata.
type DocumentInput struct {
	SourceID string
	Title    string
	Content  string
	FilePath string // used for chunker dispatch and stored verbatim
}

// PreparedDoc is a DocumentInput after chunking and id assignment: it is
// ready to hand to the accumulator and, eventually, the writer.
type PreparedDoc struct {
	Document *domain.Document
	Chunks   []*domain.Chunk
}

// Preparer converts DocumentInputs into PreparedDocs: it assigns the
// document id, stamps created_at, dispatches to the chunker family, and
// assigns each chunk a stable content-hash id (document id, normalized
// chunk text) so re-ingesting unchanged content is idempotent (spec.md I4).
type Preparer struct {
	chunker *chunk.Family
}

// NewPreparer builds a preparer around the given chunker family.
func NewPreparer(chunker *chunk.Family) *Preparer {
	return &Preparer{chunker: chunker}
}

// Prepare chunks input and assigns ids, returning a ready-to-accumulate
// PreparedDoc. The document id is freshly generated; chunk ids are
// deterministic given (document id, chunk text), so retrying the same
// prepare call with the same document id produces the same chunk ids.
func (p *Preparer) Prepare(input DocumentInput) (*PreparedDoc, error) {
	docID := uuid.NewString()
	return p.prepareWithID(docID, input)
}

// PrepareWithID is Prepare but reuses an existing document id, title, and
// file path — the shape reindex needs when re-chunking a document that
// already exists in the content store (spec.md §4.8 step 4).
func (p *Preparer) PrepareWithID(docID string, input DocumentInput) (*PreparedDoc, error) {
	return p.prepareWithID(docID, input)
}

func (p *Preparer) prepareWithID(docID string, input DocumentInput) (*PreparedDoc, error) {
	fragments, err := p.chunker.Chunk(&chunk.FileInput{Path: input.FilePath, Content: input.Content})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:            docID,
		SourceID:      input.SourceID,
		Title:         input.Title,
		FilePath:      input.FilePath,
		Content:       input.Content,
		CreatedAt:     now,
		ChunkCount:    len(fragments),
		ContentLength: len(input.Content),
	}

	chunks := make([]*domain.Chunk, 0, len(fragments))
	for _, f := range fragments {
		chunks = append(chunks, &domain.Chunk{
			ID:          chunkID(docID, f.Content),
			DocumentID:  docID,
			SourceID:    input.SourceID,
			Title:       input.Title,
			FilePath:    input.FilePath,
			StartLine:   f.StartLine,
			EndLine:     f.EndLine,
			ContentHash: chunkID(docID, f.Content),
			Section:     f.Section,
			Subsection:  f.Subsection,
			Hierarchy:   f.Hierarchy,
			HasCode:     f.HasCode,
			Content:     f.Content,
		})
	}

	return &PreparedDoc{Document: doc, Chunks: chunks}, nil
}

// chunkID computes the stable chunk id: hex SHA-256 of the document id and
// the chunk's normalized text (spec.md I4).
func chunkID(docID, text string) string {
	h := sha256.New()
	h.Write([]byte(docID))
	h.Write([]byte{0})
	h.Write([]byte(normalizeText(text)))
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeText collapses the whitespace variation that would otherwise
// make two semantically identical chunks hash differently across runs.
func normalizeText(text string) string {
	trimmed := strings.TrimSpace(text)
	return strings.Join(strings.Fields(trimmed), " ")
}
