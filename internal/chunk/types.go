// Package chunk implements the format-dispatched chunker family: a
// markdown-aware chunker that tracks heading hierarchy, and a line-oriented
// fallback for everything else. Chunkers emit Fragments; stable
// content-hash ids are assigned by the ingest preparer (spec.md I4), not
// here, since the id also depends on the owning document.
package chunk

import "strings"

// Fragment is one chunk-sized piece of a document, before the preparer
// assigns it a document-scoped id.
type Fragment struct {
	Content    string
	StartLine  int // 1-based, inclusive
	EndLine    int // 1-based, inclusive
	Section    string
	Subsection string
	Hierarchy  []string
	HasCode    bool
}

// FileInput is what a Chunker consumes: raw text plus enough metadata to
// dispatch and to stamp into emitted fragments.
type FileInput struct {
	Path    string // used only for extension dispatch; may be empty
	Content string
}

// Chunker consumes raw text and emits an ordered sequence of fragments
// satisfying the size, overlap, and line-numbering invariants in spec.md
// §4.1.
type Chunker interface {
	Chunk(input *FileInput) ([]*Fragment, error)
	SupportedExtensions() []string
}

// Sizing holds the TARGET_SIZE / MIN_CHUNK / OVERLAP constants. Values must
// stay identical across ingestion and reindex runs (spec.md §4.1).
type Sizing struct {
	TargetSize int
	MinChunk   int
	Overlap    int
}

// DefaultSizing returns the recommended constants from spec.md §4.1.
func DefaultSizing() Sizing {
	return Sizing{TargetSize: 1500, MinChunk: 100, Overlap: 150}
}

// hasFencedCodeMarker reports whether body contains a fenced code marker,
// per the `has_code` invariant.
func hasFencedCodeMarker(body string) bool {
	return strings.Contains(body, "```")
}

// lineCount returns how many lines s spans, counting a trailing partial
// line as one.
func lineCount(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n") + 1
	if strings.HasSuffix(s, "\n") {
		n--
	}
	return n
}
