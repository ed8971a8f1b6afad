// Package version holds build information for the diagram display binaries.
package version

import "fmt"

// Set at build time with -ldflags "-X diagram-display/internal/version.GitCommit=...".
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String describes the build in one line.
func String() string {
	if GitCommit == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (%s, built %s)", Version, GitCommit, BuildTime)
}
