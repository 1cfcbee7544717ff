package ports

import (
	"context"
	"io"

	"go.trai.ch/mk/internal/core/domain"
)

// CommandRunner executes one materialized recipe command.
//
//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks
type CommandRunner interface {
	// Run executes the command, streaming its output to the given writers,
	// and returns the exit status. A non-zero status is reported through the
	// status, not the error; the error means the command could not run at all.
	Run(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) (int, error)
}
