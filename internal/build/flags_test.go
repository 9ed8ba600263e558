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
	origInfo    Info
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origInfo = buildInfo

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	buildInfo = origInfo

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
		wantName    string
	}{
		{"Development Build", "", "", "", "", "", "unknown"},
		{"Missing BuildName", "", "2025-04-13", "abcdef123", "v1.0.0", "BuildName is required", ""},
		{"Missing BuildTime", "lightdesk", "", "abcdef123", "v1.0.0", "BuildTime is required", ""},
		{"Missing BuildCommit", "lightdesk", "2025-04-13", "", "v1.0.0", "BuildCommit is required", ""},
		{"Missing BuildVersion", "lightdesk", "2025-04-13", "abcdef123", "", "BuildVersion is required", ""},
		{"Success Case", "lightdesk", "2025-04-13", "abcdef123", "v1.0.0", "", "lightdesk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildInfo = Info{Name: "unknown", Time: "unknown", Commit: "unknown", Version: "unknown"}
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				if err == nil || err.Error() != tt.wantErrMsg {
					t.Errorf("Initialize() error = %v, want %v", err, tt.wantErrMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}
			if got := GetBuildFlags().Name; got != tt.wantName {
				t.Errorf("Name = %q, want %q", got, tt.wantName)
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Name: "lightdesk", Time: "2025-04-13", Commit: "abc", Version: "v1.0.0"}
	want := "lightdesk v1.0.0 (commit abc, built 2025-04-13)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
