// Package version exposes build metadata injected at link time:
//
//	go build -ldflags "-X github.com/HerbHall/studyforge/internal/version.Version=v0.2.0"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags. Defaults describe a local development build.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Short returns the version string.
func Short() string {
	return Version
}

// Map returns build metadata as a map for JSON responses.
func Map() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": commit(),
		"build_date": BuildDate,
		"go_version": runtime.Version(),
	}
}

// Info returns a single human-readable version line.
func Info() string {
	return fmt.Sprintf("studyforge %s (commit %s, built %s, %s)", Version, commit(), BuildDate, runtime.Version())
}

// commit falls back to the VCS revision recorded by the Go toolchain when
// no ldflags value was supplied.
func commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return GitCommit
}
