// Package entercmd composes the container manager exec invocation that
// attaches a session to a running container.
package entercmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/maxamillion/distrobox/internal/envproj"
	"github.com/maxamillion/distrobox/internal/workdir"
	"github.com/mattn/go-isatty"
)

// Options are the inputs to Generate. Generation is pure: the same options
// always yield the same invocation.
type Options struct {
	ContainerName string
	User          string
	Workdir       string

	// EnterPath is the absolute path to this tool, exported into the
	// container for the export collaborator.
	EnterPath string

	Env        []envproj.Entry
	Path       string
	DataDirs   string
	ConfigDirs string

	// ExtraFlags are manager-specific flags passed through verbatim.
	ExtraFlags []string

	// Command is the caller-supplied command. Empty means the fallback:
	// the user's login shell from the container's own user database.
	Command []string

	// Headless suppresses TTY allocation regardless of stdin.
	Headless bool

	// IsTerminal reports whether stdin is a terminal. Left nil the real
	// stdin is checked. Re-evaluated on every Generate call, never cached.
	IsTerminal func() bool
}

// Command is an immutable exec invocation: the argv handed to the
// container manager binary. It is consumed exactly once, either executed
// or printed.
type Command struct {
	argv []string
}

// Argv returns a copy of the invocation tokens.
func (c Command) Argv() []string {
	return append([]string(nil), c.argv...)
}

// String renders the invocation with every token shell-quoted, so the
// printed form survives exactly one layer of shell re-evaluation.
func (c Command) String() string {
	quoted := make([]string, len(c.argv))
	for i, arg := range c.argv {
		quoted[i] = quoteArg(arg)
	}
	return strings.Join(quoted, " ")
}

// Generate builds the exec invocation. The empty detach-keys sequence
// disables the manager's default detach hotkey, which would otherwise
// swallow forwarded terminal input.
func Generate(opts Options) Command {
	isTerminal := opts.IsTerminal
	if isTerminal == nil {
		isTerminal = func() bool { return isatty.IsTerminal(os.Stdin.Fd()) }
	}

	argv := []string{"exec", "--interactive", "--detach-keys", ""}
	if !opts.Headless && isTerminal() {
		argv = append(argv, "--tty")
	}
	argv = append(argv,
		"--user", opts.User,
		"--workdir", workdir.EscapeQuotes(opts.Workdir),
		"--env", "CONTAINER_ID="+opts.ContainerName,
		"--env", "DISTROBOX_ENTER_PATH="+opts.EnterPath,
	)
	for _, e := range opts.Env {
		argv = append(argv, "--env", e.Key+"="+e.Value)
	}
	argv = append(argv,
		"--env", "PATH="+opts.Path,
		"--env", "XDG_DATA_DIRS="+opts.DataDirs,
		"--env", "XDG_CONFIG_DIRS="+opts.ConfigDirs,
	)
	argv = append(argv, opts.ExtraFlags...)
	argv = append(argv, opts.ContainerName)

	if len(opts.Command) > 0 {
		argv = append(argv, opts.Command...)
	} else {
		argv = append(argv, "sh", "-c", loginShellCommand(opts.User))
	}

	return Command{argv: argv}
}

// loginShellCommand looks up the user's login shell in the container's own
// user database and replaces the shell with it, as a login shell.
func loginShellCommand(user string) string {
	return fmt.Sprintf(`exec "$(getent passwd %s | cut -d: -f7)" -l`, user)
}

func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool { return !plainRune(r) }) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func plainRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '@', '%', '_', '+', '=', ':', ',', '.', '/', '-':
		return true
	}
	return false
}
