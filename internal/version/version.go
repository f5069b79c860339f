// Package version carries build metadata injected with -ldflags -X, filled
// in from the module build info when not set.
package version

import (
	"fmt"
	"runtime/debug"
)

const AppName = "jslearn-web"

var (
	Version    = "dev"
	Commit     = "none"
	CommitDate string
	BuildDate  string
	BuildId    string
	GoVersion  string
	VCSDirty   *bool
)

type Info struct {
	AppName    string `json:"app"`
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	CommitDate string `json:"commit_date"`
	BuildDate  string `json:"build_date"`
	BuildId    string `json:"build_id"`
	GoVersion  string `json:"go_version"`
	VCSDirty   *bool  `json:"vcs_dirty,omitempty"`
}

func Get() Info {
	out := Info{
		AppName:    AppName,
		Version:    Version,
		Commit:     Commit,
		CommitDate: CommitDate,
		BuildDate:  BuildDate,
		BuildId:    BuildId,
		GoVersion:  GoVersion,
		VCSDirty:   VCSDirty,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fromBuildInfo(&out, bi)
	}
	return out
}

// fromBuildInfo fills fields the linker flags left empty. An explicit
// VCSDirty is never overridden.
func fromBuildInfo(out *Info, bi *debug.BuildInfo) {
	if out.GoVersion == "" {
		out.GoVersion = bi.GoVersion
	}
	if (out.Version == "" || out.Version == "dev") && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		out.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if out.Commit == "none" && s.Value != "" {
				out.Commit = s.Value
			}
		case "vcs.time":
			if out.CommitDate == "" {
				out.CommitDate = s.Value
			}
			if out.BuildDate == "" {
				out.BuildDate = s.Value
			}
		case "vcs.modified":
			if out.VCSDirty != nil {
				continue
			}
			switch s.Value {
			case "true", "false":
				d := s.Value == "true"
				out.VCSDirty = &d
			}
		}
	}
}

// ShortCommit returns at most the first 12 characters of the commit.
func (i Info) ShortCommit() string {
	if len(i.Commit) > 12 {
		return i.Commit[:12]
	}
	return i.Commit
}

func (i Info) String() string {
	s := fmt.Sprintf("%s %s (commit %s", i.AppName, i.Version, i.ShortCommit())
	if i.VCSDirty != nil && *i.VCSDirty {
		s += ", dirty"
	}
	if i.BuildDate != "" {
		s += ", built " + i.BuildDate
	}
	return s + ", " + i.GoVersion + ")"
}
