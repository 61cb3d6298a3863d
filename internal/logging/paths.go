package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.eywa/logs/), honoring
// $EYWA_HOME the same way internal/config.EywaDir does. Falls back to the
// temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	if dir := os.Getenv("EYWA_HOME"); dir != "" {
		return filepath.Join(dir, "logs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".eywa", "logs")
	}
	return filepath.Join(home, ".eywa", "logs")
}

// DefaultLogPath returns the default server log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	return os.MkdirAll(DefaultLogDir(), 0o755)
}
