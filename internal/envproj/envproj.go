// Package envproj decides which host environment variables, and which
// PATH-like search lists, are forwarded into the container.
package envproj

import (
	"slices"
	"strings"
)

// Entry is one forwarded environment variable.
type Entry struct {
	Key   string
	Value string
}

// denylist names variables whose container-side values must come from the
// container's own configuration, never from the host.
var denylist = map[string]struct{}{
	"HOST":            {},
	"HOSTNAME":        {},
	"HOME":            {},
	"PATH":            {},
	"PROFILEREAD":     {},
	"SHELL":           {},
	"XDG_DATA_DIRS":   {},
	"XDG_CONFIG_DIRS": {},
}

// standardPaths are the FHS binary directories every container is expected
// to serve.
var standardPaths = []string{
	"/usr/local/sbin",
	"/usr/local/bin",
	"/usr/sbin",
	"/usr/bin",
	"/sbin",
	"/bin",
}

// Supplementary discovery paths for the data-dirs and config-dirs lists.
var (
	DataDirDefaults   = []string{"/usr/local/share", "/usr/share"}
	ConfigDirDefaults = []string{"/etc/xdg"}
)

// Project filters a host environment (os.Environ form) down to the entries
// safe to forward. Pure function; the live environment is untouched.
func Project(environ []string) []Entry {
	var entries []Entry
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		if _, denied := denylist[key]; denied {
			continue
		}
		if !safeValue(value) {
			continue
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}
	return entries
}

// safeValue rejects values that cannot be re-quoted into the generated
// command without changing meaning.
func safeValue(v string) bool {
	return !strings.ContainsAny(v, " \t\n\"'`$")
}

// MergePath builds the in-container PATH. The container's declared entries
// keep highest priority; standard directories it lacks are prepended, then
// host segments it lacks are prepended in front of those. An entry already
// present is never re-inserted, so the first occurrence wins.
func MergePath(containerPath, hostPath string) string {
	merged := splitList(containerPath)
	merged = prependMissing(merged, standardPaths)
	merged = prependMissing(merged, splitList(hostPath))
	return strings.Join(merged, ":")
}

// MergeDirs supplements a host search list with defaults appended after
// it. These are discovery paths, not executable lookup, so the host list
// keeps priority.
func MergeDirs(hostList string, defaults []string) string {
	merged := splitList(hostList)
	for _, seg := range defaults {
		if seg == "" || slices.Contains(merged, seg) {
			continue
		}
		merged = append(merged, seg)
	}
	return strings.Join(merged, ":")
}

func prependMissing(base, extra []string) []string {
	var missing []string
	for _, seg := range extra {
		if seg == "" || slices.Contains(base, seg) || slices.Contains(missing, seg) {
			continue
		}
		missing = append(missing, seg)
	}
	return append(missing, base...)
}

// splitList splits a colon-delimited list into its unique segments,
// preserving first-seen order.
func splitList(list string) []string {
	var segs []string
	for _, seg := range strings.Split(list, ":") {
		if seg == "" || slices.Contains(segs, seg) {
			continue
		}
		segs = append(segs, seg)
	}
	return segs
}
