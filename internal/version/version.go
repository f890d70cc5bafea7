// Package version provides build version information for the skewjoin CLI.
package version

import (
	"fmt"
	"runtime"
)

// Build-time variables set by ldflags.
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// String returns a formatted version line.
func String() string {
	commit := GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("skewjoin %s (commit %s, built %s, %s)",
		Version, commit, BuildDate, runtime.Version())
}
