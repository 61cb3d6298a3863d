package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestThenSearch_RoundTrips(t *testing.T) {
	t.Setenv("EYWA_HOME", t.TempDir())

	docPath := filepath.Join(t.TempDir(), "auth.md")
	require.NoError(t, os.WriteFile(docPath, []byte("# Auth\n\nJWT tokens are verified on every incoming request."), 0o644))

	ingestCmd := NewRootCmd()
	ingestCmd.SetArgs([]string{"ingest", docPath, "--source", "docs"})
	require.NoError(t, ingestCmd.Execute())

	searchCmd := NewRootCmd()
	buf := new(bytes.Buffer)
	searchCmd.SetOut(buf)
	searchCmd.SetArgs([]string{"search", "JWT", "tokens"})
	require.NoError(t, searchCmd.Execute())

	assert.Contains(t, buf.String(), "auth.md")
}
