package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownChunker_TracksHierarchy(t *testing.T) {
	content := "# Title\n\nIntro text.\n\n## Section A\n\nBody A.\n\n### Subsection A.1\n\nBody A.1.\n"
	c := NewMarkdownChunker(DefaultSizing())

	frags, err := c.Chunk(&FileInput{Path: "doc.md", Content: content})
	require.NoError(t, err)
	require.NotEmpty(t, frags)

	var sawSubsection bool
	for _, f := range frags {
		if f.Subsection == "Subsection A.1" {
			sawSubsection = true
			assert.Contains(t, f.Hierarchy, "Title")
			assert.Contains(t, f.Hierarchy, "Section A")
		}
	}
	assert.True(t, sawSubsection)
}

func TestMarkdownChunker_NoHeadersFallsBackToLineChunking(t *testing.T) {
	c := NewMarkdownChunker(DefaultSizing())
	frags, err := c.Chunk(&FileInput{Content: "just a paragraph of text with no headers at all."})
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, "", frags[0].Section)
}

func TestMarkdownChunker_HasCodeDetection(t *testing.T) {
	content := "# Title\n\n```go\nfunc f() {}\n```\n"
	c := NewMarkdownChunker(DefaultSizing())
	frags, err := c.Chunk(&FileInput{Content: content})
	require.NoError(t, err)
	require.NotEmpty(t, frags)
	assert.True(t, frags[0].HasCode)
}

func TestFamily_DispatchesByExtension(t *testing.T) {
	f := NewFamily(DefaultSizing())

	mdFrags, err := f.Chunk(&FileInput{Path: "readme.md", Content: "# H\n\nbody\n"})
	require.NoError(t, err)
	require.NotEmpty(t, mdFrags)
	assert.Equal(t, "H", mdFrags[0].Section)

	txtFrags, err := f.Chunk(&FileInput{Path: "notes.txt", Content: "plain fallback text"})
	require.NoError(t, err)
	require.Len(t, txtFrags, 1)
	assert.Equal(t, "", txtFrags[0].Section)
}
