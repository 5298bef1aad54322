// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

// Package version provides build version information for koinode, set at
// build time via ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the current koinode version (set by ldflags).
	Version = "dev"

	// Commit is the git commit hash (set by ldflags).
	Commit = "unknown"

	// BuildTime is the build timestamp (set by ldflags).
	BuildTime = "unknown"
)

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("koinode %s (commit: %s, built: %s, go: %s)",
		Version, Commit, BuildTime, runtime.Version())
}
