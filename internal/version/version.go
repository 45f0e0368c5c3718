package version

import (
	"fmt"
)

var (
	// Version is the current version of the CLI
	// This will be overridden by ldflags during build
	Version = "dev"

	// These variables are set by goreleaser
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

// SetBuildInfo sets the build information
func SetBuildInfo(commitHash, buildDate, builder string) {
	commit = commitHash
	date = buildDate
	builtBy = builder
}

// GetVersion returns the full version string
func GetVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, by: %s)",
		Version, commit, date, builtBy)
}
