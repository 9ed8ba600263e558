// SPDX-License-Identifier: MIT
package build

import "fmt"

// Info holds build-time information injected during compilation, for example:
//
//	go build -ldflags "-X lightdesk/internal/build.buildName=lightdesk \
//	  -X lightdesk/internal/build.buildVersion=0.3.0 ..."
type Info struct {
	Name    string // Application name
	Time    string // Build timestamp (RFC3339)
	Commit  string // Git commit hash
	Version string // Semantic version
}

// String renders the info the way `lightdesk --version` prints it.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Package-level variables populated by -ldflags. A plain `go build` leaves
// all of them empty, which is treated as a development build.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = Info{
		Name:    "unknown",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "unknown",
	}
)

// Initialize copies the ldflags variables into the package build info.
// A development build (no flags at all) keeps the "unknown" defaults. A
// release build with only some flags set is rejected so a broken
// pipeline does not ship a half-labelled binary.
func Initialize() error {
	if buildName == "" && buildTime == "" && buildCommit == "" && buildVersion == "" {
		return nil
	}

	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildInfo = Info{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() Info {
	return buildInfo
}
