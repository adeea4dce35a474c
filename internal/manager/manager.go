// Package manager drives a podman- or docker-compatible container manager
// through its command-line contracts: inspect, start, logs and exec.
package manager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
)

// Kind identifies a supported container manager.
type Kind string

const (
	Podman Kind = "podman"
	Docker Kind = "docker"
)

// Status is a container state as reported by the manager.
type Status string

const (
	// StatusUnknown means the container does not exist. Callers treat it
	// as "needs creation", not as an error.
	StatusUnknown Status = "unknown"
	StatusCreated Status = "created"
	StatusRunning Status = "running"
	StatusExited  Status = "exited"
)

// RuntimeInfo is the result of one live inspect call. It is derived fresh
// every time; state can change between an existence check and a start, so
// it must never be cached across decision points.
type RuntimeInfo struct {
	Status Status
	Home   string
	Path   string
}

// ErrNoManager is returned when no manager binary resolves on PATH.
var ErrNoManager = errors.New("no container manager found (tried podman, docker)")

// inspectFormat yields the container status on the first line followed by
// one Config.Env entry per line.
const inspectFormat = `{{.State.Status}}{{range .Config.Env}}{{"\n"}}{{.}}{{end}}`

// logSinceFormat is RFC3339 with nanoseconds and a timezone offset, so the
// cursor stays comparable against the manager's wall-clock log index.
const logSinceFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Manager invokes one container manager binary, optionally through a
// privilege escalation program.
type Manager struct {
	kind Kind
	path string
	sudo string
}

// Option configures a Manager.
type Option func(*Manager)

// WithRootful routes every invocation through the given escalation program.
func WithRootful(program string) Option {
	return func(m *Manager) { m.sudo = program }
}

// New returns a Manager for the given kind. With resolve set the binary is
// looked up on PATH; dry runs skip resolution and use the bare name.
func New(kind Kind, resolve bool, opts ...Option) (*Manager, error) {
	if kind != Podman && kind != Docker {
		return nil, fmt.Errorf("unsupported container manager %q (want podman or docker)", kind)
	}
	m := &Manager{kind: kind, path: string(kind)}
	for _, opt := range opts {
		opt(m)
	}
	if resolve {
		path, err := exec.LookPath(string(kind))
		if err != nil {
			return nil, fmt.Errorf("%w: %s not on PATH", ErrNoManager, kind)
		}
		m.path = path
	}
	return m, nil
}

// Detect returns the first available manager, podman then docker. Without
// resolution it defaults to podman.
func Detect(resolve bool, opts ...Option) (*Manager, error) {
	if !resolve {
		return New(Podman, false, opts...)
	}
	for _, kind := range []Kind{Podman, Docker} {
		if m, err := New(kind, true, opts...); err == nil {
			return m, nil
		}
	}
	return nil, ErrNoManager
}

// Kind returns the manager flavor in use.
func (m *Manager) Kind() Kind { return m.kind }

// Prefix returns the invocation prefix (escalation program, if any, and
// the manager binary) that precedes any generated argv.
func (m *Manager) Prefix() []string {
	if m.sudo != "" {
		return []string{m.sudo, m.path}
	}
	return []string{m.path}
}

func (m *Manager) command(ctx context.Context, args ...string) *exec.Cmd {
	prefix := m.Prefix()
	argv := append(prefix[1:], args...)
	return exec.CommandContext(ctx, prefix[0], argv...)
}

// Inspect queries the manager for the named container's status and its
// declared HOME and PATH. A missing container yields StatusUnknown.
func (m *Manager) Inspect(ctx context.Context, name string) (RuntimeInfo, error) {
	log := clog.FromContext(ctx)

	cmd := m.command(ctx, "inspect", "--type", "container", "--format", inspectFormat, name)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if isNotFound(stderr.String()) {
			log.Debug("container not found", "name", name)
			return RuntimeInfo{Status: StatusUnknown}, nil
		}
		return RuntimeInfo{}, fmt.Errorf("%s inspect %s: %w: %s", m.kind, name, err, strings.TrimSpace(stderr.String()))
	}

	info := parseInspect(stdout.String())
	log.Debug("inspected container", "name", name, "status", info.Status)
	return info, nil
}

// Start issues the start verb. Success is re-verified by the caller via a
// follow-up Inspect, not by this call's exit code.
func (m *Manager) Start(ctx context.Context, name string) error {
	out, err := m.command(ctx, "start", name).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s start %s: %w: %s", m.kind, name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Logs returns the container's log lines emitted since the given instant.
// Adjacent calls may return overlapping lines; the caller deduplicates.
func (m *Manager) Logs(ctx context.Context, name string, since time.Time) ([]string, error) {
	out, err := m.command(ctx, "logs", "--since", since.Format(logSinceFormat), name).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s logs %s: %w: %s", m.kind, name, err, strings.TrimSpace(string(out)))
	}
	return splitLines(string(out)), nil
}

// ExecCommand builds the final exec handoff with this process's standard
// streams attached; the child's exit code becomes ours.
func (m *Manager) ExecCommand(ctx context.Context, argv []string) *exec.Cmd {
	cmd := m.command(ctx, argv...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

func isNotFound(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "no such container") || strings.Contains(s, "no such object")
}

func parseInspect(out string) RuntimeInfo {
	info := RuntimeInfo{Status: StatusUnknown}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return info
	}
	info.Status = Status(lines[0])
	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "HOME":
			if info.Home == "" {
				info.Home = value
			}
		case "PATH":
			if info.Path == "" {
				info.Path = value
			}
		}
	}
	return info
}

func splitLines(out string) []string {
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}
