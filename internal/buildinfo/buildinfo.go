// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

import "runtime"

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/garyellow/unibot-go/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/garyellow/unibot-go/internal/buildinfo.Commit=...
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
// Inject via: -X github.com/garyellow/unibot-go/internal/buildinfo.BuildDate=...
var BuildDate = ""

// Info is the payload served by /version and printed by the CLI.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get returns the build metadata. An unset Version reports "dev".
func Get() Info {
	v := Version
	if v == "" {
		v = "dev"
	}
	return Info{
		Version:   v,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// String renders the version for CLI output, e.g. "v1.2.0 (abc1234)".
func (i Info) String() string {
	s := i.Version
	if i.Commit != "" {
		c := i.Commit
		if len(c) > 7 {
			c = c[:7]
		}
		s += " (" + c + ")"
	}
	return s
}
