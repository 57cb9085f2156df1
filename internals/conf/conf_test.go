package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	got, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.API.Timeout() != 15*time.Second {
		t.Fatalf("expected default timeout, got %s", got.API.Timeout())
	}
	if got.Projects.PageSize != 20 {
		t.Fatalf("expected default page size 20, got %d", got.Projects.PageSize)
	}
	if got.Stub.Addr != "localhost:8000" {
		t.Fatalf("expected default stub addr, got %q", got.Stub.Addr)
	}
	if got.Version == "" {
		t.Fatalf("expected version to be set")
	}
}

func TestConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	body := `{"api":{"request_timeout":"3s"},"projects":{"page_size":5},"stub":{"step_delay":"10ms"}}`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.API.Timeout() != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %s", got.API.Timeout())
	}
	if got.Projects.PageSize != 5 {
		t.Fatalf("expected page size 5, got %d", got.Projects.PageSize)
	}
	if got.Stub.Delay() != 10*time.Millisecond {
		t.Fatalf("expected 10ms step delay, got %s", got.Stub.Delay())
	}
	if got.DataDir != dir {
		t.Fatalf("expected data dir %q, got %q", dir, got.DataDir)
	}
}

func TestConfigRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(`{"api":{"request_timeout":"soon"}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected invalid duration to fail")
	}
}
