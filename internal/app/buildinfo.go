package app

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/hyperifyio/deepfetch/internal/app.BuildVersion=...".
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = ""
	BuildDate    = ""
)

// Version describes the running binary. Unset commit and date fall back to
// the VCS stamp the Go toolchain embeds.
func Version() string {
	commit, date := BuildCommit, BuildDate
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "" {
					commit = s.Value
				}
			case "vcs.time":
				if date == "" {
					date = s.Value
				}
			}
		}
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("%s (%s, %s)", BuildVersion, commit, date)
}
