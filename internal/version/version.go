// Package version holds build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/smazurov/iss-notify/internal/version.Version=v1.2.0"
//
// Without ldflags the commit and date fall back to the VCS stamp the go
// tool embeds.
package version

import (
	"runtime"
	"runtime/debug"
)

// Name is the program name used in user agents and version output.
const Name = "iss-notify"

const unknown = "unknown"

// Set with -ldflags -X.
var (
	Version   = "dev"
	GitCommit = unknown
	BuildDate = unknown
)

// Info is what `iss-notify version` prints.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get collects the build information of the running binary.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.applySettings(bi.Settings)
	}
	return info
}

// applySettings fills fields ldflags left unset from the vcs.* build settings.
func (i *Info) applySettings(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if i.GitCommit == unknown && s.Value != "" {
				i.GitCommit = shortCommit(s.Value)
			}
		case "vcs.time":
			if i.BuildDate == unknown && s.Value != "" {
				i.BuildDate = s.Value
			}
		case "vcs.modified":
			i.Modified = s.Value == "true"
		}
	}
}

func shortCommit(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String renders the info on one line.
func (i Info) String() string {
	commit := i.GitCommit
	if i.Modified {
		commit += "+dirty"
	}
	return Name + " " + i.Version + " (commit " + commit + ", built " + i.BuildDate + ", " +
		i.GoVersion + " " + i.Platform + ")"
}

// UserAgent returns the HTTP User-Agent sent when fetching the feed.
func UserAgent() string {
	return Name + "/" + Version
}
