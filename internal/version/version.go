package version

import (
	"fmt"
	"runtime/debug"
)

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information. A dev build installed with `go install`
// reports the module version and VCS revision recorded by the toolchain.
func Info() (string, string, string) {
	v, commit, date := Version, GitCommit, BuildDate
	if v != "dev" {
		return v, commit, date
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return v, commit, date
	}
	if mv := bi.Main.Version; mv != "" && mv != "(devel)" {
		v = mv
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "unknown" {
				commit = s.Value
			}
		case "vcs.time":
			if date == "unknown" {
				date = s.Value
			}
		}
	}
	return v, commit, date
}

// String renders the block printed by `tarot-scan --version`.
func String() string {
	v, commit, date := Info()
	return fmt.Sprintf("tarot-scan version %s\nCommit: %s\nDate: %s", v, commit, date)
}
