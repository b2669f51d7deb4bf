// Package ver carries the build-time version string for the sectorbuilder
// binary, in the same shape the damocles manager's ver package does.
package ver

import "fmt"

const Version = "0.1.0"

// Commit is set at build time via -ldflags.
var Commit string

func VersionStr() string {
	if Commit == "" {
		return fmt.Sprintf("v%s-dev", Version)
	}
	return fmt.Sprintf("v%s-%s", Version, Commit)
}
