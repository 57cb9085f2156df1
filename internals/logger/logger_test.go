package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range tests {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestNewConsoleRespectsLevel(t *testing.T) {
	var console bytes.Buffer
	log, closer, err := New(Options{Level: "warn", Console: &console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()

	log.Info("hidden")
	log.Warn("shown", slog.Int64("project_id", 42))

	out := console.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "project_id=42") {
		t.Fatalf("expected warn record, got %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no color for non-terminal writer")
	}
}

func TestNewVerboseEnablesDebug(t *testing.T) {
	var console bytes.Buffer
	log, closer, err := New(Options{Level: "error", Verbose: true, Console: &console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()

	log.Debug("details")
	if !strings.Contains(console.String(), "details") {
		t.Fatalf("expected debug output, got %q", console.String())
	}
}

func TestNewWritesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	var console bytes.Buffer
	log, closer, err := New(Options{Level: "error", DataDir: dir, Console: &console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Debug("file only", slog.String("k", "v"))
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if strings.Contains(console.String(), "file only") {
		t.Fatalf("expected console to filter debug")
	}
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "file only") || !strings.Contains(string(data), "k=v") {
		t.Fatalf("unexpected log file %q", string(data))
	}
}
