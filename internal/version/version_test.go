package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}

func TestStringAndUserAgent(t *testing.T) {
	saved := Version
	t.Cleanup(func() { Version = saved })
	Version = "v1.2.0"

	if got := UserAgent(); got != "iss-notify/v1.2.0" {
		t.Errorf("UserAgent() = %q", got)
	}
	if got := Get().String(); !strings.HasPrefix(got, "iss-notify v1.2.0 (commit ") {
		t.Errorf("String() = %q", got)
	}
}

func TestApplySettings(t *testing.T) {
	info := Info{GitCommit: unknown, BuildDate: unknown}
	info.applySettings([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "4c0f3b243397a1b2c3d4e5f6"},
		{Key: "vcs.time", Value: "2025-06-04T17:01:12Z"},
		{Key: "vcs.modified", Value: "true"},
	})

	if info.GitCommit != "4c0f3b243397" {
		t.Errorf("GitCommit = %q", info.GitCommit)
	}
	if info.BuildDate != "2025-06-04T17:01:12Z" {
		t.Errorf("BuildDate = %q", info.BuildDate)
	}
	if !strings.Contains(info.String(), "commit 4c0f3b243397+dirty") {
		t.Errorf("String() = %q", info.String())
	}
}

func TestApplySettingsKeepsLdflags(t *testing.T) {
	info := Info{GitCommit: "abc123", BuildDate: "2025-01-01"}
	info.applySettings([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "ffffffffffffffff"},
		{Key: "vcs.time", Value: "2030-01-01T00:00:00Z"},
	})
	if info.GitCommit != "abc123" || info.BuildDate != "2025-01-01" {
		t.Errorf("ldflags values overwritten: %+v", info)
	}
}
