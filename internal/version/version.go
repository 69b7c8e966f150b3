package version

import "fmt"

// Set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Full returns the human-readable version line.
func Full() string {
	return fmt.Sprintf("demo-studio %s, commit %s, built at %s", Version, Commit, Date)
}
