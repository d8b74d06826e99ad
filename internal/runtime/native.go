// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// executeNative spawns the host shell as a child process bound to ctx.
func executeNative(ctx context.Context, inv *Invocation) *Result {
	if _, err := exec.LookPath(inv.Shell.Program); err != nil {
		return NewErrorResult(127, fmt.Errorf("shell %q: %w", inv.Shell.Program, err))
	}

	cmd := exec.CommandContext(ctx, inv.Shell.Program, inv.Shell.Argv(inv.Script)...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	cmd.Stdin = inv.Stdin
	cmd.Stdout = inv.Stdout
	cmd.Stderr = inv.Stderr

	code, err := exitCodeOf(cmd.Run())
	if err != nil {
		return NewErrorResult(code, fmt.Errorf("failed to execute command: %w", err))
	}
	return NewExitCodeResult(code)
}

// validateWorkDir validates that a working directory exists and is accessible.
// This provides a better error message than letting exec fail with a cryptic error.
func validateWorkDir(dir string) error {
	if dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied: %s", dir)
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	return nil
}
