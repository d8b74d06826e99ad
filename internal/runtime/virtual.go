// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// executeEmbedded runs the script with the mvdan/sh interpreter. External
// programs the script calls still run as host processes.
func executeEmbedded(ctx context.Context, inv *Invocation) *Result {
	prog, err := syntax.NewParser().Parse(strings.NewReader(inv.Script), "script")
	if err != nil {
		return NewErrorResult(2, fmt.Errorf("failed to parse script: %w", err))
	}

	dir := inv.Dir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return NewErrorResult(1, fmt.Errorf("failed to get working directory: %w", err))
		}
	}

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(inv.Env...)),
		interp.StdIO(inv.Stdin, inv.Stdout, inv.Stderr),
	)
	if err != nil {
		return NewErrorResult(1, fmt.Errorf("failed to create interpreter: %w", err))
	}

	code, err := exitCodeOf(runner.Run(ctx, prog))
	if err != nil {
		return NewErrorResult(code, fmt.Errorf("script execution failed: %w", err))
	}
	return NewExitCodeResult(code)
}

// ValidateScript reports a syntax error in a script for the embedded shell.
func ValidateScript(script string) error {
	_, err := syntax.NewParser().Parse(strings.NewReader(script), "script")
	return err
}
