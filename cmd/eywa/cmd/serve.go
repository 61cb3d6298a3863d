package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShankarKakumani/eywa/internal/logging"
	"github.com/ShankarKakumani/eywa/internal/mcpserver"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Starts the MCP server and serves the search, similar_docs,
list_sources, list_documents, and get_document tools over stdio.

The stdio transport reserves stdout exclusively for JSON-RPC traffic, so
no status output is printed here; use --debug to write diagnostics to
~/.eywa/logs/server.log instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if debugMode {
				level = "debug"
			}
			cleanup, err := logging.SetupMCPMode(level)
			if err != nil {
				return fmt.Errorf("setting up logging: %w", err)
			}
			defer cleanup()

			ctx := cmd.Context()
			eng, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer closeEngine(eng)

			return mcpserver.New(eng).Serve(ctx)
		},
	}
	return cmd
}
