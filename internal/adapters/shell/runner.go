// Package shell provides the command runner adapter.
package shell

import (
	"context"
	"errors"
	"io"
	"os/exec"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/zerr"
)

// interpreter is what recipe lines are handed to, verbatim.
const interpreter = "/bin/sh"

var _ ports.CommandRunner = (*Runner)(nil)

// Runner implements ports.CommandRunner through the shell. Recipe lines stay
// opaque: no parsing and no expansion beyond the substitution that already
// happened upstream.
type Runner struct{}

// NewRunner creates a new Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes one command line and waits for it. The exit status comes back
// as a value; the error is reserved for commands that never ran.
func (r *Runner) Run(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) (int, error) {
	c := exec.CommandContext(ctx, interpreter, "-c", cmd.Line) //nolint:gosec // recipe lines are user provided
	c.Dir = cmd.Dir
	c.Stdout = stdout
	c.Stderr = stderr

	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Signal deaths report -1; still just a non-zero status.
			return exitErr.ExitCode(), nil
		}
		return -1, zerr.With(zerr.Wrap(err, domain.ErrCommandStart.Error()), "command", cmd.Line)
	}
	return 0, nil
}
