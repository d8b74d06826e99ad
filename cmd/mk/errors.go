// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"

	"github.com/mkrun/mk/internal/config"
	"github.com/mkrun/mk/internal/container"
	"github.com/mkrun/mk/internal/dag"
	"github.com/mkrun/mk/internal/engine"
	"github.com/mkrun/mk/internal/issue"
	"github.com/mkrun/mk/internal/runtime"
	"github.com/mkrun/mk/pkg/taskfile"
)

// classifyError maps a failure to the issue catalog entry that explains it.
// The order matters: a precondition or engine failure is also reported
// through the task that hit it.
func classifyError(err error) (issue.Id, bool) {
	var (
		cycle     *dag.CycleError
		unknown   *dag.UnknownNodeError
		noEngine  *container.ErrEngineNotAvailable
		parseErr  *taskfile.ParseError
		cmdFailed *engine.CommandFailedError
	)

	switch {
	case errors.As(err, &cycle):
		return issue.DependencyCycleId, true
	case errors.As(err, &unknown), errors.Is(err, taskfile.ErrTaskNotFound):
		return issue.TaskNotFoundId, true
	case errors.As(err, &noEngine):
		return issue.ContainerEngineNotFoundId, true
	case errors.Is(err, container.ErrContainerfileNotFound):
		return issue.ContainerfileNotFoundId, true
	case errors.Is(err, runtime.ErrPreconditionFailed):
		return issue.PreconditionFailedId, true
	case errors.Is(err, exec.ErrNotFound):
		return issue.ShellNotFoundId, true
	case errors.As(err, &cmdFailed):
		return issue.CommandFailedId, true
	case errors.As(err, &parseErr),
		errors.Is(err, taskfile.ErrIncludeCycle),
		errors.Is(err, taskfile.ErrUnsupportedFormat):
		return issue.TaskfileParseErrorId, true
	case errors.Is(err, fs.ErrNotExist):
		return issue.TaskfileNotFoundId, true
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId, true
	}
	return 0, false
}

// report prints err and the matching issue guide to stderr and returns the
// ExitError the command should end with. A failing command's own output is
// usually explanation enough, so its guide is only shown when verbose.
func (a *App) report(err error, scheme config.ColorScheme) error {
	fmt.Fprintf(a.stderr, "\n%s %s\n", errorStyle.Render("Error:"), formatErrorForDisplay(err, a.flags.verbose))

	if id, ok := classifyError(err); ok && (id != issue.CommandFailedId || a.flags.verbose) {
		if rendered, rerr := issue.Get(id).Render(string(scheme)); rerr == nil {
			fmt.Fprint(a.stderr, rendered)
		}
	}

	return &ExitError{Code: exitCode(err)}
}

// exitCode is the exit status of the failing command when one propagated,
// 1 otherwise.
func exitCode(err error) int {
	var cf *engine.CommandFailedError
	if errors.As(err, &cf) && cf.ExitCode > 0 {
		return cf.ExitCode
	}
	return 1
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
