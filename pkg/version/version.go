// Package version provides version information for the codejoiner CLI.
package version

import (
	"fmt"
	"runtime"
)

// These variables are populated at build time using -ldflags.
// Example:
// go build -ldflags "-X 'codejoiner/pkg/version.Version=1.2.3' -X 'codejoiner/pkg/version.Commit=abcdefg' -X 'codejoiner/pkg/version.BuildTime=2024-04-27T15:04:05Z'"
var (
	Version   = "dev"     // Semantic version of the application
	Commit    = "none"    // Git commit hash
	BuildTime = "unknown" // Build timestamp
)

// AppName is the name reported in logs and version output.
const AppName = "codejoiner"

// Info contains comprehensive version information.
type Info struct {
	Version   string
	GitCommit string
	BuildTime string
	GoVersion string
	Platform  string // OS and architecture
}

// Get returns the current version information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns the version information on one line, e.g.
// codejoiner version 1.2.3 (commit: abcdefg) built at 2024-04-27T15:04:05Z with go1.24.0 on linux/amd64
func (i Info) String() string {
	return fmt.Sprintf("%s version %s (commit: %s) built at %s with %s on %s",
		AppName, i.Version, i.GitCommit, i.BuildTime, i.GoVersion, i.Platform)
}

// UserAgent identifies the remote client in HTTP requests.
func (i Info) UserAgent() string {
	return fmt.Sprintf("%s/%s (%s)", AppName, i.Version, i.Platform)
}
