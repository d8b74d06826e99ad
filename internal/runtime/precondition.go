// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/mkrun/mk/pkg/taskfile"
)

// ErrPreconditionFailed is the sentinel wrapped by PreconditionFailedError.
var ErrPreconditionFailed = errors.New("precondition failed")

type (
	// PreconditionFailedError reports the first failing precondition of a
	// task.
	PreconditionFailedError struct {
		Task    string
		Command string
		// Message is the precondition's configured message, if any.
		Message  string
		ExitCode ExitCode
		// Err is set when the check could not run at all.
		Err error
	}

	// Gate runs task preconditions.
	Gate struct {
		// Executor runs each check.
		Executor Executor
		// Shell is used when neither the precondition nor its task declares one.
		Shell Shell
		// Stdout and Stderr receive the output of verbose preconditions.
		Stdout io.Writer
		Stderr io.Writer
	}
)

// Error implements the error interface.
func (e *PreconditionFailedError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("task %q: precondition failed: %s", e.Task, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("task %q: precondition %q could not run: %v", e.Task, e.Command, e.Err)
	default:
		return fmt.Sprintf("task %q: precondition %q failed with exit code %d", e.Task, e.Command, e.ExitCode)
	}
}

// Unwrap returns ErrPreconditionFailed for errors.Is() compatibility.
func (e *PreconditionFailedError) Unwrap() error { return ErrPreconditionFailed }

// Check evaluates the task's preconditions in declaration order and stops at
// the first failure. Checks always run one at a time, whatever the task's
// parallel flag. A precondition's output is discarded unless it is verbose.
func (g *Gate) Check(ctx context.Context, task *taskfile.Task, env *Environment) error {
	taskShell := ShellFrom(task.Shell, g.Shell)

	for _, pc := range task.Preconditions {
		inv := &Invocation{
			Shell:  ShellFrom(pc.Shell, taskShell),
			Script: pc.Command,
			Dir:    ResolveDir(task.Dir, pc.WorkDir),
			Env:    env.Slice(),
		}
		if pc.Verbose != nil && *pc.Verbose {
			inv.Stdout, inv.Stderr = g.Stdout, g.Stderr
		}

		slog.Debug("checking precondition", "task", task.Name, "command", pc.Command)
		result := g.Executor.Execute(ctx, inv)
		if !result.Success() {
			return &PreconditionFailedError{
				Task:     task.Name,
				Command:  pc.Command,
				Message:  pc.Message,
				ExitCode: result.ExitCode,
				Err:      result.Error,
			}
		}
	}
	return nil
}

// ResolveDir joins a declared working directory onto base. An empty dir
// means base itself.
func ResolveDir(base, dir string) string {
	switch {
	case dir == "":
		return base
	case filepath.IsAbs(dir):
		return dir
	default:
		return filepath.Join(base, filepath.FromSlash(dir))
	}
}
