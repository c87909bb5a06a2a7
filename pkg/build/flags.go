// SPDX-License-Identifier: MIT
//
// Package build manages build metadata for the timegrapher binary. The
// application name, build timestamp, Git commit hash and semantic version
// are embedded at compile time via linker flags, e.g.:
//
//	go build -ldflags "-X timegrapher/pkg/build.buildName=timegrapher \
//	    -X timegrapher/pkg/build.buildVersion=0.1.0 ..."
//
// Development builds without ldflags fall back to sane defaults.
package build

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables for build information. These are populated by
// -ldflags during compilation and left empty during development.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "timegrapher",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies build information from the ldflags variables into the
// buildFlags struct. Missing flags keep their development defaults, so a
// plain `go build` produces a usable binary. Must be called early in
// program startup, before GetBuildFlags.
func Initialize() error {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
