// SPDX-License-Identifier: MIT
//
// Package build holds metadata injected at compile time via -ldflags: the
// application name, build timestamp, Git commit and semantic version. During
// development builds, where no flags are injected, sensible defaults are used
// so `go run` still works.
package build

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "spectra",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies any injected build information into the buildFlags
// struct. Unset flags keep their development defaults. Call early in program
// startup, before anything reads GetBuildFlags.
func Initialize() {
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
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
