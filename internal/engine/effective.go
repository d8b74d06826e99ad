// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"

	"github.com/mkrun/mk/internal/runtime"
	"github.com/mkrun/mk/pkg/taskfile"
)

type (
	// effective is the configuration one command invocation runs with. It
	// is computed per invocation and never written back to the task.
	effective struct {
		ignoreErrors bool
		verbose      bool
		shell        runtime.Shell
		dir          string
	}

	ctxKey int
)

const (
	callerKey ctxKey = iota
	verboseKey
)

// resolveEffective applies setting precedence:
//  1. the command's own value
//  2. the owning task's value
//  3. a verbose value handed down by the TaskRun that reached the task
//  4. the engine default
//
// ignore_errors has no inherited or engine level and defaults to false.
func (e *Engine) resolveEffective(ctx context.Context, t *taskfile.Task, ignoreErrors, verbose *bool) effective {
	eff := effective{
		ignoreErrors: firstSet(false, ignoreErrors, t.IgnoreErrors),
		verbose:      firstSet(e.verbose, verbose, t.Verbose, inheritedVerbose(ctx)),
		shell:        runtime.ShellFrom(t.Shell, e.shell),
		dir:          t.Dir,
	}
	return eff
}

func firstSet(fallback bool, values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return fallback
}

// withCaller records the task whose commands are running in ctx.
func withCaller(ctx context.Context, task string) context.Context {
	return context.WithValue(ctx, callerKey, task)
}

// callerOf returns the running task, or "" at the top of a run.
func callerOf(ctx context.Context) string {
	name, _ := ctx.Value(callerKey).(string)
	return name
}

func withInheritedVerbose(ctx context.Context, verbose *bool) context.Context {
	if verbose == nil {
		return ctx
	}
	v := *verbose
	return context.WithValue(ctx, verboseKey, &v)
}

func inheritedVerbose(ctx context.Context) *bool {
	v, _ := ctx.Value(verboseKey).(*bool)
	return v
}
