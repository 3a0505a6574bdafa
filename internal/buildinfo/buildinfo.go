// Package buildinfo holds version information injected at build time via ldflags.
package buildinfo

import "fmt"

var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// AppName is the application-scoped name used for directories, the IPC
// endpoint and window titles.
const AppName = "whatsit"

// String returns a one-line version description.
func String() string {
	return fmt.Sprintf("%s %s (%s, built %s)", AppName, Version, CommitHash, BuildDate)
}
