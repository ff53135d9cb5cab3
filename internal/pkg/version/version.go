package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version (injected at build time via ldflags)
	Version = "dev"

	// GitCommit is the git commit hash (injected at build time via ldflags)
	GitCommit = "unknown"

	// BuildDate is the build date (injected at build time via ldflags)
	BuildDate = "unknown"
)

// GetVersion returns the version string
func GetVersion() string {
	return Version
}

// GetFullVersion returns a detailed version string with build info
func GetFullVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, %s %s/%s)",
		Version, GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies this client in session startup requests.
func UserAgent() string {
	if GitCommit != "unknown" && len(GitCommit) > 7 {
		return fmt.Sprintf("gridsync/%s-%s (%s)", Version, GitCommit[:7], runtime.GOOS)
	}
	return fmt.Sprintf("gridsync/%s (%s)", Version, runtime.GOOS)
}
