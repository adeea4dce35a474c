// Package startup blocks until a freshly started container finishes its
// internal setup, by tailing the container's logs.
//
// The poll loop deliberately overlaps its log queries: each iteration
// reads from the timestamp recorded before the previous query was issued,
// so no line can fall between two queries. The duplicates this produces
// are absorbed by a per-attempt ledger of already-reported status lines.
// The two halves belong together; removing either one alone reintroduces
// missed lines or duplicate prints.
package startup

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/charmbracelet/lipgloss"
	"github.com/maxamillion/distrobox/internal/manager"
)

// Runtime is the slice of the container manager the engine needs.
type Runtime interface {
	Start(ctx context.Context, name string) error
	Inspect(ctx context.Context, name string) (manager.RuntimeInfo, error)
	Logs(ctx context.Context, name string, since time.Time) ([]string, error)
}

// Markers emitted by the container entrypoint. Status lines are unique per
// setup run; that is the entrypoint's contract, not something this engine
// can verify.
const (
	errorMarker  = "Error"
	warnMarker   = "Warning"
	statusMarker = "status:"
	doneSentinel = "container_setup_done"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// Config tunes an Engine.
type Config struct {
	// Out receives progress lines; defaults to stderr.
	Out io.Writer

	// Interval is the spacing between log queries.
	Interval time.Duration

	// Timeout bounds the whole synchronization. Zero waits forever.
	Timeout time.Duration

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

// Engine synchronizes with one container's startup. One engine performs
// one attempt; it holds no state across attempts.
type Engine struct {
	rt       Runtime
	out      io.Writer
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// New returns an Engine for the given runtime.
func New(rt Runtime, cfg Config) *Engine {
	e := &Engine{
		rt:       rt,
		out:      cfg.Out,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		now:      cfg.Now,
	}
	if e.out == nil {
		e.out = os.Stderr
	}
	if e.interval <= 0 {
		e.interval = 500 * time.Millisecond
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Sync starts the named container and blocks until its entrypoint reports
// setup completion, a fatal log line appears, or the configured bound
// expires. Any error is fatal to the whole entry operation; nothing here
// retries.
func (e *Engine) Sync(ctx context.Context, name string) error {
	log := clog.FromContext(ctx)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cursor := e.now()
	if err := e.rt.Start(ctx, name); err != nil {
		return err
	}

	// The start verb's exit code proves nothing; only a follow-up inspect
	// does. Anything but running here means the entrypoint never ran.
	info, err := e.rt.Inspect(ctx, name)
	if err != nil {
		return err
	}
	if info.Status != manager.StatusRunning {
		e.surfaceLogs(ctx, name, cursor)
		return fmt.Errorf("container %s failed to start (status %q)", name, info.Status)
	}
	log.Debug("container started, waiting for setup", "name", name)

	// Reported status lines for this attempt only. Insertion order is
	// display order because lines print on first sight.
	ledger := make(map[string]struct{})

	for {
		next := e.now()
		lines, err := e.rt.Logs(ctx, name, cursor)
		if err != nil {
			return err
		}
		done, err := e.consume(lines, ledger)
		if err != nil {
			return err
		}
		if done {
			log.Debug("container setup complete", "name", name)
			return nil
		}
		cursor = next

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for container %s setup: %w", name, ctx.Err())
		case <-time.After(e.interval):
		}
	}
}

// consume classifies one batch of log lines in order. It reports whether
// the completion sentinel was seen; a fatal line aborts immediately, no
// matter what is queued behind it in the same batch.
func (e *Engine) consume(lines []string, ledger map[string]struct{}) (bool, error) {
	for _, line := range lines {
		switch {
		case strings.Contains(line, errorMarker):
			fmt.Fprintln(e.out, errStyle.Render(line))
			return false, fmt.Errorf("container setup failed: %s", line)

		case strings.Contains(line, warnMarker):
			fmt.Fprintln(e.out, warnStyle.Render(line))

		case strings.Contains(line, statusMarker):
			_, after, _ := strings.Cut(line, statusMarker)
			text := strings.TrimSpace(after)
			if _, seen := ledger[text]; seen {
				continue
			}
			ledger[text] = struct{}{}
			fmt.Fprintf(e.out, "%s\t%s\n", text, okStyle.Render("[ OK ]"))

		case strings.Contains(line, doneSentinel):
			fmt.Fprintf(e.out, "%s\t%s\n", "container setup", okStyle.Render("[ OK ]"))
			return true, nil
		}
	}
	return false, nil
}

// surfaceLogs prints whatever the container logged since the cursor,
// verbatim. Every fatal path shows its evidence.
func (e *Engine) surfaceLogs(ctx context.Context, name string, since time.Time) {
	lines, err := e.rt.Logs(ctx, name, since)
	if err != nil {
		return
	}
	for _, line := range lines {
		fmt.Fprintln(e.out, line)
	}
}
