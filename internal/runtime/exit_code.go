// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"os/exec"
	"strconv"

	"mvdan.cc/sh/v3/interp"
)

// ExitCode is a process exit status. The zero value means success.
type ExitCode int

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// IsTransient returns true for the container engine's own failure codes
// (125: engine error, 126: command cannot be invoked), which may succeed on
// retry.
func (c ExitCode) IsTransient() bool { return c == 125 || c == 126 }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// exitCodeOf splits a process error into an exit status and an
// infrastructure error. A non-zero exit is a normal outcome and returns a nil
// error; a failure to start the process returns code 1 and the error.
func exitCodeOf(err error) (ExitCode, error) {
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal.
			return 1, err
		}
		return ExitCode(code), nil
	}

	var status interp.ExitStatus
	if errors.As(err, &status) {
		return ExitCode(status), nil
	}

	return 1, err
}
