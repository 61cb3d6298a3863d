package chunk

import "strings"

// FallbackChunker is the line-oriented splitter used for any extension the
// dispatch map doesn't recognize. It carries no section/subsection
// metadata.
type FallbackChunker struct {
	sizing Sizing
}

// NewFallbackChunker builds a FallbackChunker using the given size targets.
func NewFallbackChunker(sizing Sizing) *FallbackChunker {
	return &FallbackChunker{sizing: sizing}
}

func (c *FallbackChunker) SupportedExtensions() []string { return nil }

func (c *FallbackChunker) Chunk(input *FileInput) ([]*Fragment, error) {
	return chunkLines(input.Content, 1, c.sizing, "", "", nil), nil
}

// lineRef is a line carried into the chunk currently being assembled,
// tagged with its original (0-based) index so StartLine/EndLine can be
// computed even when the line came from the previous chunk's overlap
// tail rather than from the forward cursor.
type lineRef struct {
	idx  int
	text string
}

// chunkLines is the shared line-accumulating splitter: it is used directly
// by FallbackChunker and by MarkdownChunker to split any section that
// exceeds TargetSize. It is a single forward pass over lines — the cursor
// i never rewinds — mirroring the source implementation's chunk_by_lines,
// which carries the overlap forward as a string tail instead of
// re-scanning backward from a computed index. Each chunk always consumes
// at least one not-yet-seen line before checking TargetSize, so the
// cursor strictly advances every iteration even when a single line alone
// exceeds TargetSize or the carried overlap tail already does.
func chunkLines(content string, startLineOffset int, sizing Sizing, section, subsection string, hierarchy []string) []*Fragment {
	trimmed := strings.TrimRight(content, "\n")
	if strings.TrimSpace(trimmed) == "" {
		return nil
	}

	if len(trimmed) < sizing.MinChunk {
		return []*Fragment{{
			Content:    trimmed,
			StartLine:  startLineOffset,
			EndLine:    startLineOffset + lineCount(trimmed) - 1,
			Section:    section,
			Subsection: subsection,
			Hierarchy:  hierarchy,
			HasCode:    hasFencedCodeMarker(trimmed),
		}}
	}

	lines := strings.Split(trimmed, "\n")
	lineForIdx := func(idx int) int { return startLineOffset + idx }

	var fragments []*Fragment
	var carry []lineRef
	i := 0
	for i < len(lines) {
		buf := append([]lineRef(nil), carry...)
		length := 0
		for _, lr := range buf {
			length += len(lr.text) + 1
		}

		for i < len(lines) {
			buf = append(buf, lineRef{idx: i, text: lines[i]})
			length += len(lines[i]) + 1
			i++
			if length >= sizing.TargetSize {
				break
			}
		}

		var b strings.Builder
		for j, lr := range buf {
			if j > 0 {
				b.WriteString("\n")
			}
			b.WriteString(lr.text)
		}
		body := b.String()
		fragments = append(fragments, &Fragment{
			Content:    body,
			StartLine:  lineForIdx(buf[0].idx),
			EndLine:    lineForIdx(buf[len(buf)-1].idx),
			Section:    section,
			Subsection: subsection,
			Hierarchy:  hierarchy,
			HasCode:    hasFencedCodeMarker(body),
		})

		if i >= len(lines) {
			break
		}
		carry = overlapTail(buf, sizing.Overlap)
	}
	return fragments
}

// overlapTail returns the trailing lines of buf covering approximately
// overlapChars, snapped to a line boundary — the carried-forward seed for
// the next chunk. It returns nil when overlapChars is not positive or buf is
// empty; otherwise it returns at least the last line of buf, so
// combined with chunkLines always consuming one fresh line before
// re-checking TargetSize, the cursor i is guaranteed to strictly advance.
func overlapTail(buf []lineRef, overlapChars int) []lineRef {
	if overlapChars <= 0 || len(buf) == 0 {
		return nil
	}
	acc := 0
	start := len(buf) - 1
	for idx := len(buf) - 1; idx >= 0; idx-- {
		acc += len(buf[idx].text) + 1
		start = idx
		if acc >= overlapChars {
			break
		}
	}
	return append([]lineRef(nil), buf[start:]...)
}

// findOverlapStart scans backward from endExclusive, accumulating line
// lengths until it has covered approximately overlapChars, and returns the
// line index to resume from — always a line boundary, never a mid-line
// offset.
func findOverlapStart(lines []string, endExclusive int, overlapChars int) int {
	if overlapChars <= 0 {
		return endExclusive
	}
	acc := 0
	idx := endExclusive
	for idx > 0 {
		idx--
		acc += len(lines[idx]) + 1
		if acc >= overlapChars {
			return idx
		}
	}
	return 0
}
