package chunk

import (
	"path/filepath"
	"strings"
)

// Family dispatches a FileInput to the right Chunker by extension, falling
// back to the line-oriented splitter for anything unrecognized. PDF text
// extraction happens upstream (out of scope, spec.md §1); by the time
// content reaches here, a PDF-sourced document is just markdown-flavored
// text and is dispatched to the markdown chunker via the same extensions.
type Family struct {
	markdown *MarkdownChunker
	fallback *FallbackChunker
	byExt    map[string]Chunker
}

// NewFamily builds the chunker family using the given size targets.
func NewFamily(sizing Sizing) *Family {
	md := NewMarkdownChunker(sizing)
	fb := NewFallbackChunker(sizing)
	byExt := make(map[string]Chunker)
	for _, ext := range md.SupportedExtensions() {
		byExt[ext] = md
	}
	return &Family{markdown: md, fallback: fb, byExt: byExt}
}

// Chunk dispatches on input.Path's extension and runs the matching
// chunker, or the fallback if the extension is unrecognized or absent.
func (f *Family) Chunk(input *FileInput) ([]*Fragment, error) {
	ext := strings.ToLower(filepath.Ext(input.Path))
	if c, ok := f.byExt[ext]; ok {
		return c.Chunk(input)
	}
	return f.fallback.Chunk(input)
}
