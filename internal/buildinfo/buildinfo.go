// Package buildinfo carries version information stamped at link time with
// -ldflags "-X vrpls/internal/buildinfo.Version=...".
package buildinfo

import "runtime/debug"

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

// Info returns the stamped values. When Commit was not stamped the VCS
// revision recorded by the Go toolchain is used instead.
func Info() map[string]string {
	commit, builtAt := Commit, BuiltAt
	if commit == "" {
		commit, builtAt = vcs(builtAt)
	}
	return map[string]string{
		"version": Version,
		"commit":  commit,
		"builtAt": builtAt,
	}
}

func vcs(builtAt string) (string, string) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "", builtAt
	}
	var rev string
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
			if len(rev) > 12 {
				rev = rev[:12]
			}
		case "vcs.time":
			if builtAt == "" {
				builtAt = s.Value
			}
		}
	}
	return rev, builtAt
}
