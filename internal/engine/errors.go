// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"

	"github.com/mkrun/mk/pkg/taskfile"
)

var (
	// ErrConfig is the sentinel wrapped by ConfigError.
	ErrConfig = errors.New("configuration error")

	// ErrCommandFailed is the sentinel wrapped by CommandFailedError.
	ErrCommandFailed = errors.New("command failed")

	// ErrDependencyFailed is the sentinel wrapped by DependencyFailedError.
	ErrDependencyFailed = errors.New("dependency failed")
)

type (
	// ConfigError reports a task file that cannot be executed as written: an
	// unknown task reference, an invalid command shape or a missing
	// containerfile.
	ConfigError struct {
		// Task is the task the problem was found in, if any.
		Task string
		Err  error
	}

	// CommandFailedError reports a command that exited non-zero or could not
	// be started.
	CommandFailedError struct {
		Task string
		// Index is the command's position in the task's list.
		Index    int
		Kind     taskfile.CommandKind
		ExitCode int
		Err      error
	}

	// DependencyFailedError reports a task that did not run because one of
	// its declared dependencies failed.
	DependencyFailedError struct {
		Task       string
		Dependency string
		Err        error
	}
)

func (e *ConfigError) Error() string {
	if e.Task == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("task %q: configuration error: %v", e.Task, e.Err)
}

// Unwrap exposes both ErrConfig and the underlying error.
func (e *ConfigError) Unwrap() []error { return []error{ErrConfig, e.Err} }

func (e *CommandFailedError) Error() string {
	msg := fmt.Sprintf("task %q: command #%d (%s) failed", e.Task, e.Index+1, e.Kind)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s with exit code %d", msg, e.ExitCode)
}

// Unwrap exposes both ErrCommandFailed and the underlying error.
func (e *CommandFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCommandFailed}
	}
	return []error{ErrCommandFailed, e.Err}
}

func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("task %q: dependency %q failed: %v", e.Task, e.Dependency, e.Err)
}

// Unwrap exposes both ErrDependencyFailed and the dependency's error.
func (e *DependencyFailedError) Unwrap() []error { return []error{ErrDependencyFailed, e.Err} }
