package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShankarKakumani/eywa/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		limit    int
		sourceID string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documents",
		Long: `Search combines BM25 (keyword) and semantic (embedding) search with
score-based fusion, then reranks the merged candidates.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			ctx := cmd.Context()
			eng, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer closeEngine(eng)

			results, err := eng.Search.Search(ctx, query, limit, sourceID)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			return printResults(cmd, query, results)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().StringVarP(&sourceID, "source", "s", "", "restrict results to this source id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")

	return cmd
}

func printResults(cmd *cobra.Command, query string, results []search.Result) error {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		_, err := fmt.Fprintf(out, "No results found for %q\n", query)
		return err
	}

	fmt.Fprintf(out, "Found %d results for %q:\n\n", len(results), query)
	for i, r := range results {
		location := r.Title
		if r.FilePath != "" {
			location = r.FilePath
			if r.StartLine > 0 {
				location = fmt.Sprintf("%s:%d", r.FilePath, r.StartLine)
			}
		}
		fmt.Fprintf(out, "%d. %s (score: %.3f)\n", i+1, location, r.Score)
		fmt.Fprintf(out, "   %s\n\n", firstLine(r.Content))
	}
	return nil
}

func firstLine(content string) string {
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		content = content[:idx]
	}
	if len(content) > 160 {
		content = content[:160] + "…"
	}
	return content
}
