package version

import (
	"fmt"
	"runtime"
)

// These variables are set at build time using ldflags
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info is the one-line build description printed by the version command.
func Info() string {
	return fmt.Sprintf("jsonsynth %s (%s) built on %s with %s",
		Version, Commit, Date, runtime.Version())
}
