// Package workdir maps the host's current directory onto a path that is
// valid inside the container.
package workdir

import (
	"path"
	"strings"
)

// HostBindRoot is the fixed in-container mount point under which the whole
// host filesystem is reachable.
const HostBindRoot = "/run/host"

// Resolve maps the host's current directory to an in-container path. With
// skip set the container home is returned unchanged. When the current
// directory cannot be determined the home is used, and the root directory
// when there is no home either. Paths outside the container home are
// namespaced under HostBindRoot so the session always lands somewhere
// that exists.
func Resolve(skip bool, home string, getwd func() (string, error)) string {
	if home == "" {
		home = "/"
	}
	if skip {
		return home
	}
	cwd, err := getwd()
	if err != nil || cwd == "" {
		return home
	}
	if home == "/" || cwd == home || strings.HasPrefix(cwd, home+"/") {
		return cwd
	}
	return path.Join(HostBindRoot, cwd)
}

// EscapeQuotes escapes embedded double quotes so the path survives
// embedding into the generated command string.
func EscapeQuotes(p string) string {
	return strings.ReplaceAll(p, `"`, `\"`)
}
