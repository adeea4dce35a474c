package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"os/user"
	"strings"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/clog/slag"
	charmlog "github.com/charmbracelet/log"
	"github.com/maxamillion/distrobox/internal/create"
	"github.com/maxamillion/distrobox/internal/entercmd"
	"github.com/maxamillion/distrobox/internal/envproj"
	"github.com/maxamillion/distrobox/internal/manager"
	"github.com/maxamillion/distrobox/internal/startup"
	"github.com/maxamillion/distrobox/internal/workdir"
	"github.com/spf13/cobra"
)

var version = "1.8.0"

const defaultContainerName = "my-distrobox"

type options struct {
	logLevel slag.Level

	name           string
	managerName    string
	rootful        bool
	sudoProgram    string
	skipWorkdir    bool
	nonInteractive bool
	headless       bool
	dryRun         bool
	extraFlags     []string
	startupTimeout time.Duration
}

// setupLogging configures logging for the command
func (o *options) setupLogging(ctx context.Context) context.Context {
	l := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           charmlog.Level(o.logLevel),
		ReportTimestamp: true,
	})
	ctx = clog.WithLogger(ctx, clog.New(l))
	slog.SetDefault(slog.New(l))
	return ctx
}

// exitError carries a specific process exit code through the cobra stack.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			if exit.err != nil {
				clog.ErrorContextf(ctx, "error: %v", exit.err)
			}
			os.Exit(exit.code)
		}
		clog.ErrorContextf(ctx, "error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "distrobox-enter [flags] [--] [command...]",
		Short:         "Enter a distrobox container, starting it first if needed",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx = opts.setupLogging(ctx)
			cmd.SetContext(ctx)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), args)
		},
	}

	rootCmd.PersistentFlags().Var(&opts.logLevel, "log-level", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVarP(&opts.name, "name", "n", envOr("DBX_CONTAINER_NAME", defaultContainerName), "name of the container to enter")
	rootCmd.Flags().StringVar(&opts.managerName, "manager", os.Getenv("DBX_CONTAINER_MANAGER"), "container manager to use (podman, docker; default autodetect)")
	rootCmd.Flags().BoolVarP(&opts.rootful, "root", "r", false, "invoke the container manager with elevated privileges")
	rootCmd.Flags().StringVar(&opts.sudoProgram, "sudo-program", envOr("DBX_SUDO_PROGRAM", "sudo"), "program used to escalate privileges in rootful mode")
	rootCmd.Flags().BoolVar(&opts.skipWorkdir, "skip-workdir", envBool("DBX_SKIP_WORKDIR"), "enter at the container home instead of the current directory")
	rootCmd.Flags().BoolVarP(&opts.nonInteractive, "yes", "Y", envBool("DBX_NON_INTERACTIVE"), "assume yes on interactive questions")
	rootCmd.Flags().BoolVarP(&opts.headless, "no-tty", "T", false, "never allocate a pseudo-terminal")
	rootCmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the generated command instead of executing it")
	rootCmd.Flags().StringArrayVarP(&opts.extraFlags, "additional-flags", "a", nil, "additional flags passed to the exec invocation")
	rootCmd.Flags().DurationVar(&opts.startupTimeout, "startup-timeout", 0, "maximum time to wait for container setup (0 waits forever)")

	return rootCmd.ExecuteContext(ctx)
}

// deps binds the driver to its collaborators. Tests substitute fakes.
type deps struct {
	mgr        startup.Runtime
	creator    create.Creator
	execRun    func(ctx context.Context, argv []string) error
	prefix     []string
	stdin      io.Reader
	stdout     io.Writer
	isTerminal func() bool
}

func (o *options) run(ctx context.Context, args []string) error {
	d, err := o.deps()
	if err != nil {
		return err
	}
	return o.enter(ctx, d, args)
}

func (o *options) deps() (*deps, error) {
	var mopts []manager.Option
	if o.rootful {
		mopts = append(mopts, manager.WithRootful(o.sudoProgram))
	}

	// Binary resolution is skipped on dry runs: printing the command must
	// work on hosts without a manager installed.
	resolve := !o.dryRun

	var mgr *manager.Manager
	var err error
	if o.managerName != "" {
		mgr, err = manager.New(manager.Kind(o.managerName), resolve, mopts...)
	} else {
		mgr, err = manager.Detect(resolve, mopts...)
	}
	if err != nil {
		if errors.Is(err, manager.ErrNoManager) {
			return nil, &exitError{code: 127, err: err}
		}
		return nil, err
	}

	return &deps{
		mgr:     mgr,
		creator: &create.CLICreator{},
		execRun: func(ctx context.Context, argv []string) error {
			return mgr.ExecCommand(ctx, argv).Run()
		},
		prefix: mgr.Prefix(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}, nil
}

// enter is the whole lifecycle: inspect, create if absent, synchronize
// startup if stopped, then hand off to the generated exec invocation.
func (o *options) enter(ctx context.Context, d *deps, command []string) error {
	log := clog.FromContext(ctx)

	info, err := d.mgr.Inspect(ctx, o.name)
	if err != nil {
		return err
	}

	if info.Status == manager.StatusUnknown {
		if !o.nonInteractive {
			question := fmt.Sprintf("Container %s does not exist. Create it now?", o.name)
			yes, err := create.Confirm(d.stdin, d.stdout, question)
			if err != nil {
				return err
			}
			if !yes {
				return &exitError{code: 1, err: fmt.Errorf("container %s does not exist", o.name)}
			}
		}
		if err := d.creator.Create(ctx, o.name, create.DefaultImage); err != nil {
			return err
		}
		// Creation happened in a separate process; ask again instead of
		// assuming what it left behind.
		if info, err = d.mgr.Inspect(ctx, o.name); err != nil {
			return err
		}
		if info.Status == manager.StatusUnknown {
			return fmt.Errorf("container %s still missing after creation", o.name)
		}
	}

	if info.Status != manager.StatusRunning {
		engine := startup.New(d.mgr, startup.Config{
			Out:     d.stdout,
			Timeout: o.startupTimeout,
		})
		if err := engine.Sync(ctx, o.name); err != nil {
			return err
		}
		if info, err = d.mgr.Inspect(ctx, o.name); err != nil {
			return err
		}
	}

	gencmd := entercmd.Generate(entercmd.Options{
		ContainerName: o.name,
		User:          currentUser(),
		Workdir:       workdir.Resolve(o.skipWorkdir, info.Home, os.Getwd),
		EnterPath:     selfPath(),
		Env:           envproj.Project(os.Environ()),
		Path:          envproj.MergePath(info.Path, os.Getenv("PATH")),
		DataDirs:      envproj.MergeDirs(os.Getenv("XDG_DATA_DIRS"), envproj.DataDirDefaults),
		ConfigDirs:    envproj.MergeDirs(os.Getenv("XDG_CONFIG_DIRS"), envproj.ConfigDirDefaults),
		ExtraFlags:    o.extraFlags,
		Command:       command,
		Headless:      o.headless,
		IsTerminal:    d.isTerminal,
	})

	if o.dryRun {
		fmt.Fprintln(d.stdout, strings.Join(d.prefix, " ")+" "+gencmd.String())
		return nil
	}

	log.Debug("entering container", "name", o.name, "argv", gencmd.Argv())
	if err := d.execRun(ctx, gencmd.Argv()); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return &exitError{code: ee.ExitCode()}
		}
		return err
	}
	return nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

func selfPath() string {
	if p, err := os.Executable(); err == nil {
		return p
	}
	return os.Args[0]
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
