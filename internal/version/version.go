// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version
	Version = "0.1.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// String formats the version line printed by -version flags.
func String(name string) string {
	return fmt.Sprintf("%s v%s (built %s, commit %s)", name, Version, BuildTime, GitCommit)
}
