package logging

import (
	"log/slog"
)

// SetupMCPMode initializes logging for stdio MCP server mode: the stdio
// transport reserves stdout exclusively for JSON-RPC, so logs here go only
// to the rotating file, never to stderr, at the given level.
func SetupMCPMode(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Info("mcp stdio logging initialized", slog.String("log_file", cfg.FilePath), slog.String("level", cfg.Level))
	return cleanup, nil
}
