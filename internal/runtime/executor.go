// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"
)

type (
	// Invocation describes one script run.
	Invocation struct {
		Shell  Shell
		Script string
		// Dir is the working directory; empty means the current directory.
		Dir string
		// Env is the complete environment as KEY=VALUE pairs.
		Env []string
		// Stdin, Stdout and Stderr may be nil; nil output is discarded.
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Executor runs scripts. The engine and the precondition gate depend on
	// this interface so tests can observe invocations without processes.
	Executor interface {
		Execute(ctx context.Context, inv *Invocation) *Result
	}

	// ShellExecutor runs scripts with host shells, or with the embedded
	// interpreter when the shell is EmbeddedShell.
	ShellExecutor struct{}
)

// NewShellExecutor creates the default Executor.
func NewShellExecutor() *ShellExecutor {
	return &ShellExecutor{}
}

// Execute runs the invocation and blocks until it exits or ctx is done.
func (e *ShellExecutor) Execute(ctx context.Context, inv *Invocation) *Result {
	if inv.Stdout == nil {
		inv.Stdout = io.Discard
	}
	if inv.Stderr == nil {
		inv.Stderr = io.Discard
	}
	if err := validateWorkDir(inv.Dir); err != nil {
		return NewErrorResult(1, err)
	}

	start := time.Now()
	var result *Result
	if inv.Shell.IsEmbedded() {
		result = executeEmbedded(ctx, inv)
	} else {
		result = executeNative(ctx, inv)
	}
	result.Duration = time.Since(start)
	return result
}

// Capture runs the invocation with stdout captured into Result.Output,
// trimmed of surrounding whitespace. Stderr goes to inv.Stderr.
func Capture(ctx context.Context, ex Executor, inv Invocation) *Result {
	var stdout bytes.Buffer
	inv.Stdout = &stdout
	result := ex.Execute(ctx, &inv)
	result.Output = strings.TrimSpace(stdout.String())
	return result
}
