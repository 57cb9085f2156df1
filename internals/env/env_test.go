package env

import (
	"path/filepath"
	"testing"
)

func TestEnvDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("BUILDWATCH_API_URL", "")
	t.Setenv("BUILDWATCH_HOME", "")
	t.Setenv("BUILDWATCH_LOG_LEVEL", "")
	env = nil
	t.Cleanup(func() { env = nil })

	got := Get()
	if got.API_URL != DefaultAPIURL {
		t.Fatalf("expected default api url %s, got %s", DefaultAPIURL, got.API_URL)
	}
	if got.DATA_DIR != filepath.Join(home, ".buildwatch") {
		t.Fatalf("expected data dir under home, got %s", got.DATA_DIR)
	}
	if got.LOG_LEVEL != "info" {
		t.Fatalf("expected info log level, got %s", got.LOG_LEVEL)
	}
}

func TestEnvOverridesAPIURL(t *testing.T) {
	t.Setenv("BUILDWATCH_API_URL", "https://agent.example.com/")
	t.Setenv("BUILDWATCH_HOME", "/tmp/bw")
	env = nil
	t.Cleanup(func() { env = nil })

	got := Get()
	if got.API_URL != "https://agent.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %s", got.API_URL)
	}
	if got.DATA_DIR != "/tmp/bw" {
		t.Fatalf("expected data dir override, got %s", got.DATA_DIR)
	}
}
