package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

// SemVer is set at build time for releases.
//
// Example:
//
//	-ldflags "-X github.com/buildwatch/buildwatch/internals/version.SemVer=1.2.3"
var SemVer = "0.0.0-dev"

// BuiltAt is set at build time for releases.
var BuiltAt = ""

type Info struct {
	Version  string `json:"version" yaml:"version"`
	Revision string `json:"revision,omitempty" yaml:"revision,omitempty"`
	Dirty    bool   `json:"dirty,omitempty" yaml:"dirty,omitempty"`
	BuiltAt  string `json:"built_at,omitempty" yaml:"built_at,omitempty"`
	Go       string `json:"go" yaml:"go"`
	Platform string `json:"platform" yaml:"platform"`
}

var (
	vcsOnce  sync.Once
	revision string
	dirty    bool
)

// Version returns SemVer with the vcs revision as build metadata when the
// binary carries one, e.g. 1.2.3+a1b2c3d4e5f6.dirty.
func Version() string {
	v := strings.TrimSpace(SemVer)
	if v == "" {
		v = "0.0.0-dev"
	}
	rev, modified := vcsInfo()
	if rev == "" {
		return v
	}
	meta := rev
	if modified {
		meta += ".dirty"
	}
	if strings.Contains(v, "+") {
		return v + "." + meta
	}
	return v + "+" + meta
}

func Get() Info {
	rev, modified := vcsInfo()
	return Info{
		Version:  Version(),
		Revision: rev,
		Dirty:    modified,
		BuiltAt:  strings.TrimSpace(BuiltAt),
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// UserAgent identifies this client to the API.
func UserAgent() string {
	return "buildwatch/" + Version()
}

func vcsInfo() (string, bool) {
	vcsOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok || info == nil {
			return
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				revision = strings.TrimSpace(s.Value)
			case "vcs.modified":
				v := strings.TrimSpace(strings.ToLower(s.Value))
				dirty = v == "true" || v == "1" || v == "yes"
			}
		}
		if len(revision) > 12 {
			revision = revision[:12]
		}
	})
	return revision, dirty
}
