// Package version reports what build of pinnode is running. Release
// builds inject the values with -ldflags -X; plain go builds fall back to
// the VCS stamp the toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set by the release build.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is served by /api/version and printed by the version command.
type Info struct {
	Version   string `json:"version" example:"1.2.0" doc:"Release version"`
	GitCommit string `json:"git_commit" example:"3f2a9c1" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	Modified  bool   `json:"modified,omitempty" doc:"Built from a dirty working tree"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target OS and architecture"`
}

var vcs = sync.OnceValue(func() map[string]string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	settings := make(map[string]string)
	for _, s := range bi.Settings {
		settings[s.Key] = s.Value
	}
	return settings
})

// Get returns version and build information.
func Get() Info {
	return resolve(vcs())
}

func resolve(stamp map[string]string) Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if rev := stamp["vcs.revision"]; info.GitCommit == "unknown" && rev != "" {
		info.GitCommit = shortRevision(rev)
		info.Modified = stamp["vcs.modified"] == "true"
	}
	if at := stamp["vcs.time"]; info.BuildDate == "unknown" && at != "" {
		info.BuildDate = at
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

func (i Info) String() string {
	commit := i.GitCommit
	if i.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("pinnode %s (commit %s, built %s, %s %s)",
		i.Version, commit, i.BuildDate, i.GoVersion, i.Platform)
}
