// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origFlags   ldFlags
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	if buildFlags != nil {
		origFlags = *buildFlags
	}

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	if buildFlags != nil {
		*buildFlags = origFlags
	}

	os.Exit(exitCode)
}

func TestInitializeDefaults(t *testing.T) {
	buildName = ""
	buildTime = ""
	buildCommit = ""
	buildVersion = ""
	*buildFlags = ldFlags{Name: "timegrapher", Time: "unknown", Commit: "unknown", Version: "dev"}

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() with empty ldflags: %v", err)
	}

	flags := GetBuildFlags()
	if flags.Name != "timegrapher" {
		t.Errorf("default Name = %q, want %q", flags.Name, "timegrapher")
	}
	if flags.Version != "dev" {
		t.Errorf("default Version = %q, want %q", flags.Version, "dev")
	}
}

func TestInitializeFromLdflags(t *testing.T) {
	buildName = "testapp"
	buildTime = "2025-04-13"
	buildCommit = "abcdef123"
	buildVersion = "v1.0.0"

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() with full ldflags: %v", err)
	}

	flags := GetBuildFlags()
	if flags.Name != "testapp" {
		t.Errorf("Name = %q, want %q", flags.Name, "testapp")
	}
	if flags.Time != "2025-04-13" {
		t.Errorf("Time = %q, want %q", flags.Time, "2025-04-13")
	}
	if flags.Commit != "abcdef123" {
		t.Errorf("Commit = %q, want %q", flags.Commit, "abcdef123")
	}
	if flags.Version != "v1.0.0" {
		t.Errorf("Version = %q, want %q", flags.Version, "v1.0.0")
	}
}
