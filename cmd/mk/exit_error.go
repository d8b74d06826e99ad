// SPDX-License-Identifier: MPL-2.0

package cmd

import "strconv"

// ExitError carries the process exit status out of a command's RunE so that
// only Execute calls os.Exit. Err is nil when the failure has already been
// printed.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status " + strconv.Itoa(e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }
