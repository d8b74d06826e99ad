// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"time"
)

type (
	// Result is the outcome of running one script.
	Result struct {
		// ExitCode is the script's exit status.
		ExitCode ExitCode
		// Error is set when the script could not run at all.
		Error error
		// Output holds captured stdout when the script ran with Capture.
		Output string
		// Duration is the wall time from start to exit.
		Duration time.Duration
	}

	// ExitError reports a script that ran and exited non-zero.
	ExitError struct {
		Code ExitCode
	}
)

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewErrorResult creates a Result with the given exit code and error.
func NewErrorResult(code ExitCode, err error) *Result {
	return &Result{ExitCode: code, Error: err}
}

// NewExitCodeResult creates a Result with the given exit code and no error.
func NewExitCodeResult(code ExitCode) *Result {
	return &Result{ExitCode: code}
}

// Success reports whether the script ran and exited zero.
func (r *Result) Success() bool {
	return r.Error == nil && r.ExitCode.IsSuccess()
}

// Err returns nil on success, the infrastructure error if the script could
// not run, or an *ExitError for a non-zero exit.
func (r *Result) Err() error {
	switch {
	case r.Error != nil:
		return r.Error
	case !r.ExitCode.IsSuccess():
		return &ExitError{Code: r.ExitCode}
	}
	return nil
}
