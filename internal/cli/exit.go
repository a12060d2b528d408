package cli

import (
	"context"
	stderrors "errors"

	"github.com/matzehuels/cutout/pkg/errors"
)

// Process exit codes.
const (
	ExitFailure     = 1
	ExitConfig      = 2
	ExitInterrupted = 130 // SIGINT
)

// ExitCode maps a command error to the process exit code. Bad ranges and
// fill values exit with ExitConfig so scripts can tell them from runtime
// failures.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case stderrors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.IsConfiguration(err):
		return ExitConfig
	default:
		return ExitFailure
	}
}
