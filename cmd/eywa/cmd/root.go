// Package cmd provides the CLI commands for eywa. CLI argument parsing
// itself is out of scope for the retrieval engine (spec.md §1); this
// package is a thin wrapper that opens an engine.Engine and dispatches to
// it, following the shape of the teacher's own root command.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ShankarKakumani/eywa/internal/config"
	"github.com/ShankarKakumani/eywa/internal/engine"
	"github.com/ShankarKakumani/eywa/internal/logging"
	"github.com/ShankarKakumani/eywa/pkg/version"
)

var debugMode bool

// NewRootCmd creates the root command for the eywa CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "eywa",
		Short:   "Local-first hybrid retrieval engine",
		Long:    `eywa ingests documents into a local content/vector/lexical store and serves hybrid (BM25 + semantic) search over MCP or the command line.`,
		Version: version.Version,
	}
	cmd.SetVersionTemplate("eywa version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.eywa/logs/ (read by serve only; other commands ignore it)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSimilarCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setupLogging wires debug-gated file logging; returns a no-op cleanup
// when disabled, since the CLI otherwise logs nothing.
func setupLogging() func() {
	if !debugMode {
		return func() {}
	}
	_, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return func() {}
	}
	return cleanup
}

// openEngine loads the on-disk config and opens the engine against the
// configured data directory (spec.md §6).
func openEngine(ctx context.Context) (*engine.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	eng, err := engine.Open(ctx, config.DataDir(), cfg)
	if err != nil {
		return nil, fmt.Errorf("opening engine: %w", err)
	}
	return eng, nil
}

func closeEngine(eng *engine.Engine) {
	if err := eng.Close(); err != nil {
		slog.Warn("error closing engine", slog.String("error", err.Error()))
	}
}
