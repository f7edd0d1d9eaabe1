package version

import (
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
)

// String formats the version line printed by `safechat --version`.
//
// Values injected via -ldflags win; otherwise the module version and VCS
// metadata recorded by the Go toolchain are used.
func String(version string, commit string, date string) string {
	v := strings.TrimSpace(version)
	c := strings.TrimSpace(commit)
	d := strings.TrimSpace(date)

	if v == "" || v == "dev" || v == "(devel)" {
		if mv := strings.TrimSpace(versioninfo.Version); mv != "" && mv != "unknown" && mv != "(devel)" {
			v = mv
		}
	}
	if c == "" || c == "unknown" {
		if rev := strings.TrimSpace(versioninfo.Revision); rev != "" && rev != "unknown" {
			c = rev
			if versioninfo.DirtyBuild {
				c += "-dirty"
			}
		}
	}
	if d == "" || d == "unknown" {
		if !versioninfo.LastCommit.IsZero() {
			d = versioninfo.LastCommit.UTC().Format(time.RFC3339)
		}
	}

	out := v
	if out == "" {
		out = "dev"
	}
	if c != "" && c != "unknown" {
		out += " (" + c + ")"
	}
	if d != "" && d != "unknown" {
		out += " " + d
	}
	return out
}
