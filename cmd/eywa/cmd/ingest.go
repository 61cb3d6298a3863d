package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ShankarKakumani/eywa/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	var (
		sourceID string
		title    string
	)

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a single document into the content/vector/lexical stores",
		Long: `Ingest reads a file (or stdin, with "-") and runs it through the
chunk/embed/write pipeline (spec.md §4.4-§4.7).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			var content []byte
			var err error
			if path == "-" {
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				content, err = os.ReadFile(path)
			}
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			docTitle := title
			if docTitle == "" && path != "-" {
				docTitle = filepath.Base(path)
			}

			ctx := cmd.Context()
			eng, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer closeEngine(eng)

			stats, err := eng.Ingest.RunOneNewID(ctx, ingest.DocumentInput{
				SourceID: sourceID,
				Title:    docTitle,
				Content:  string(content),
				FilePath: path,
			})
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ingested %d document(s), %d chunk(s)\n", stats.DocumentsWritten, stats.ChunksWritten)
			return err
		},
	}

	cmd.Flags().StringVarP(&sourceID, "source", "s", "default", "source id this document belongs to")
	cmd.Flags().StringVarP(&title, "title", "t", "", "document title (defaults to the file name)")

	return cmd
}
