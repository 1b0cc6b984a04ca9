package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag.
	Version = "0.1.0-dev"
	// Commit is the short git SHA, or "none" outside a release build.
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns the release tag.
func Short() string {
	return Version
}

// Full returns the release tag with commit, build time and Go runtime.
func Full() string {
	return fmt.Sprintf("camera-funnel %s (commit %s, built %s, %s)", Version, Commit, BuildTime, runtime.Version())
}

// KV returns the metadata as logger key-value pairs.
func KV() []any {
	return []any{"version", Version, "commit", Commit, "build_time", BuildTime}
}
