package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultLogDir_HonorsEywaHome(t *testing.T) {
	t.Setenv("EYWA_HOME", "/tmp/eywa-home-test")

	dir := DefaultLogDir()
	if !strings.Contains(dir, "logs") {
		t.Errorf("DefaultLogDir should contain logs, got: %s", dir)
	}
	if !strings.HasPrefix(dir, "/tmp/eywa-home-test") {
		t.Errorf("DefaultLogDir should honor EYWA_HOME, got: %s", dir)
	}
}

func TestDefaultLogPath_EndsWithServerLog(t *testing.T) {
	if filepath.Base(DefaultLogPath()) != "server.log" {
		t.Errorf("DefaultLogPath should end with server.log, got: %s", DefaultLogPath())
	}
}

func TestDefaultConfig_UsesSensibleDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got: %s", cfg.Level)
	}
	if cfg.MaxSizeMB != 10 {
		t.Errorf("expected MaxSizeMB 10, got: %d", cfg.MaxSizeMB)
	}
	if cfg.MaxFiles != 5 {
		t.Errorf("expected MaxFiles 5, got: %d", cfg.MaxFiles)
	}
	if !cfg.WriteToStderr {
		t.Error("expected WriteToStderr to be true")
	}
}

func TestDebugConfig_SetsDebugLevel(t *testing.T) {
	if DebugConfig().Level != "debug" {
		t.Errorf("expected level 'debug', got: %s", DebugConfig().Level)
	}
}

func TestSetup_CreatesLogFileAndWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: logPath, MaxSizeMB: 1, MaxFiles: 3})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer cleanup()

	logger.Info("test message")

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}

func TestSetupMCPMode_CreatesDefaultLogFile(t *testing.T) {
	t.Setenv("EYWA_HOME", t.TempDir())

	cleanup, err := SetupMCPMode("debug")
	if err != nil {
		t.Fatalf("SetupMCPMode failed: %v", err)
	}
	defer cleanup()

	if _, err := os.Stat(DefaultLogPath()); os.IsNotExist(err) {
		t.Error("mcp mode log file was not created")
	}
}

func TestRotatingWriter_WritesAndSyncsImmediately(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	w, err := NewRotatingWriter(logPath, 1, 3)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer w.Close()

	testData := []byte(`{"time":"2026-01-01T00:00:00Z","level":"INFO","msg":"test"}` + "\n")
	n, err := w.Write(testData)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if n != len(testData) {
		t.Errorf("expected %d bytes written, got %d", len(testData), n)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if string(content) != string(testData) {
		t.Errorf("expected %q, got %q", string(testData), string(content))
	}
}

func TestRotatingWriter_RotatesPastMaxSize(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	w, err := NewRotatingWriter(logPath, 0, 2) // 0 MB forces a rotation before every write
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer w.Close()

	line := []byte(strings.Repeat("x", 64) + "\n")
	for i := 0; i < 5; i++ {
		if _, err := w.Write(line); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	if _, err := os.Stat(logPath + ".1"); os.IsNotExist(err) {
		t.Error("expected a rotated log file to exist")
	}
}
