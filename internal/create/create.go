// Package create invokes the container creation collaborator and the
// confirmation prompt that gates it.
package create

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/chainguard-dev/clog"
)

// DefaultImage is used when creation is triggered from the enter flow.
const DefaultImage = "registry.fedoraproject.org/fedora-toolbox:latest"

// defaultProgram is the creation collaborator invoked by name.
const defaultProgram = "distrobox-create"

// Creator provisions a container by name. The real work happens in a
// separate subsystem; this package only hands off to it.
type Creator interface {
	Create(ctx context.Context, name, image string) error
}

// CLICreator shells out to the creation tool with this process's standard
// streams attached, so its own progress output reaches the user.
type CLICreator struct {
	// Program overrides the creation tool; empty means distrobox-create.
	Program string
}

func (c *CLICreator) Create(ctx context.Context, name, image string) error {
	program := c.Program
	if program == "" {
		program = defaultProgram
	}
	clog.FromContext(ctx).Debug("creating container", "program", program, "name", name, "image", image)

	cmd := exec.CommandContext(ctx, program, "--yes", "--name", name, "--image", image)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", program, err)
	}
	return nil
}

// Confirm asks a yes/no question and returns the answer. Empty input
// counts as yes; unrecognized input re-asks.
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	r := bufio.NewReader(in)
	for {
		if _, err := fmt.Fprintf(out, "%s [Y/n] ", question); err != nil {
			return false, err
		}
		line, err := r.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "y", "yes":
			if err != nil && line == "" {
				return false, fmt.Errorf("reading answer: %w", err)
			}
			return true, nil
		case "n", "no":
			return false, nil
		default:
			if err != nil {
				return false, fmt.Errorf("reading answer: %w", err)
			}
			fmt.Fprintln(out, "Please answer y or n.")
		}
	}
}
