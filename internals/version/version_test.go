package version

import (
	"strings"
	"testing"
)

func TestVersionUsesSemVer(t *testing.T) {
	original := SemVer
	t.Cleanup(func() { SemVer = original })

	SemVer = "1.2.3"
	if got := Version(); !strings.HasPrefix(got, "1.2.3") {
		t.Fatalf("expected 1.2.3 prefix, got %q", got)
	}

	SemVer = "  "
	if got := Version(); !strings.HasPrefix(got, "0.0.0-dev") {
		t.Fatalf("expected dev fallback, got %q", got)
	}
}

func TestGetFillsRuntime(t *testing.T) {
	info := Get()
	if info.Go == "" || !strings.Contains(info.Platform, "/") {
		t.Fatalf("unexpected info %+v", info)
	}
	if !strings.HasPrefix(UserAgent(), "buildwatch/") {
		t.Fatalf("unexpected user agent %q", UserAgent())
	}
}
