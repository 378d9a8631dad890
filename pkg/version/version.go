// Package version carries build metadata stamped in via -ldflags.
package version

import "runtime"

var (
	// Version is the semantic version, injected at build time via -ldflags
	Version = "dev"
	// GitCommit is the git commit hash, injected at build time
	GitCommit = "unknown"
	// GoVersion is the Go compiler version
	GoVersion = runtime.Version()
)

// String returns a single-line version descriptor for startup logs.
func String() string {
	return Version + " (" + GitCommit + ", " + GoVersion + ")"
}
