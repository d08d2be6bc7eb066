// Package version holds build version information, set at link time.
package version

import "fmt"

// Version is the semantic version of this build.
var Version = "0.1.0"

// Commit is the git commit this binary was built from.
var Commit = "unknown"

// Date is the build date.
var Date = "unknown"

// String returns the full version line.
func String() string {
	return fmt.Sprintf("searchmix %s (commit %s, built %s)", Version, Commit, Date)
}
