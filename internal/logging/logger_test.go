package logging

import (
	"os"
	"strings"
	"testing"
)

func TestNewWritesToScenarioLogFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir, Options{Level: "debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("phase started", "phase", "add_structure")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(logger.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "phase started") || !strings.Contains(string(data), "phase=add_structure") {
		t.Fatalf("unexpected log content %q", data)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir, Options{Level: "warn"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Close()
	data, _ := os.ReadFile(logger.Path())
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "shown") {
		t.Fatalf("unexpected log content %q", data)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(t.TempDir(), Options{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatalf("expected discarding logger")
	}
	var nilLogger *Logger
	if nilLogger.Close() != nil || nilLogger.Path() != "" {
		t.Fatalf("nil logger should be inert")
	}
}
