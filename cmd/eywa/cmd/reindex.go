package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the vector and lexical indices from the content store",
		Long: `Reindex drops and rebuilds the vector and lexical indices from the
content store, which remains the source of truth (spec.md §4.8). A crash
marker survives an interrupted run so the next reindex resumes cleanly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer closeEngine(eng)

			stats, err := eng.Reindex.Run(ctx)
			if err != nil {
				return fmt.Errorf("reindex failed: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d document(s), %d chunk(s)\n", stats.DocumentsReindexed, stats.ChunksReindexed)
			return err
		},
	}
	return cmd
}
