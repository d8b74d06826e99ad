// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkrun/mk/internal/container"
	"github.com/mkrun/mk/internal/dag"
	"github.com/mkrun/mk/internal/runtime"
	"github.com/mkrun/mk/pkg/taskfile"
)

// runSequential runs commands in order. The first unignored failure stops
// the list.
func (r *run) runSequential(ctx context.Context, t *taskfile.Task, env *runtime.Environment) ([]CommandOutcome, error) {
	outcomes := make([]CommandOutcome, 0, len(t.Commands))
	for i, cmd := range t.Commands {
		out, fatal := r.runCommand(ctx, t, i, cmd, env)
		outcomes = append(outcomes, out)
		if fatal {
			return outcomes, out.Err
		}
	}
	return outcomes, nil
}

// runParallel starts every command at once, up to maxParallel, and waits for
// all of them. A failing command never cancels its siblings. Unignored
// failures are joined in command order.
func (r *run) runParallel(ctx context.Context, t *taskfile.Task, env *runtime.Environment) ([]CommandOutcome, error) {
	outcomes := make([]CommandOutcome, len(t.Commands))
	fatal := make([]bool, len(t.Commands))

	var g errgroup.Group
	if r.maxParallel > 0 {
		g.SetLimit(r.maxParallel)
	}
	for i, cmd := range t.Commands {
		g.Go(func() error {
			outcomes[i], fatal[i] = r.runCommand(ctx, t, i, cmd, env)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for i, out := range outcomes {
		if fatal[i] {
			errs = append(errs, out.Err)
		}
	}
	return outcomes, errors.Join(errs...)
}

// runCommand dispatches one command and applies the failure policy. fatal
// reports an unignored failure.
func (r *run) runCommand(ctx context.Context, t *taskfile.Task, i int, cmd taskfile.Command, env *runtime.Environment) (out CommandOutcome, fatal bool) {
	out, ignoreErrors := r.dispatch(ctx, t, i, cmd, env)
	if out.Err == nil {
		return out, false
	}
	if ignoreErrors && ignorable(out.Err) {
		out.Ignored = true
		slog.Warn("ignoring failed command", "task", t.Name, "command", i+1, "error", out.Err)
		return out, false
	}
	return out, true
}

// ignorable reports whether ignore_errors may absorb err. Cycles, failed
// hard dependencies and cancellation always stop the run.
func ignorable(err error) bool {
	var cycle *dag.CycleError
	return !errors.As(err, &cycle) &&
		!errors.Is(err, ErrDependencyFailed) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// dispatch runs one command according to its kind and returns its outcome
// with the effective ignore_errors.
func (r *run) dispatch(ctx context.Context, t *taskfile.Task, i int, cmd taskfile.Command, env *runtime.Environment) (CommandOutcome, bool) {
	start := time.Now()
	out := CommandOutcome{Index: i, Kind: cmd.Kind()}

	var eff effective
	switch c := cmd.(type) {
	case *taskfile.CommandRun:
		eff = r.resolveEffective(ctx, t, nil, nil)
		r.local(ctx, t, &out, eff, &taskfile.LocalRun{Command: c.Raw}, env)
	case *taskfile.LocalRun:
		eff = r.resolveEffective(ctx, t, c.IgnoreErrors, c.Verbose)
		r.local(ctx, t, &out, eff, c, env)
	case *taskfile.ContainerRun:
		eff = r.resolveEffective(ctx, t, c.IgnoreErrors, c.Verbose)
		r.containerRun(ctx, t, &out, eff, c, env)
	case *taskfile.ContainerBuild:
		eff = r.resolveEffective(ctx, t, nil, c.Verbose)
		r.containerBuild(ctx, t, &out, eff, c, env)
	case *taskfile.TaskRun:
		eff = r.resolveEffective(ctx, t, c.IgnoreErrors, c.Verbose)
		r.taskRun(ctx, &out, c)
	default:
		out.ExitCode = 1
		out.Err = &ConfigError{Task: t.Name, Err: fmt.Errorf("unsupported command kind %T", cmd)}
	}

	if out.Duration == 0 {
		out.Duration = time.Since(start)
	}
	return out, eff.ignoreErrors
}

func (r *run) outputs(eff effective) (io.Writer, io.Writer) {
	if !eff.verbose {
		return nil, nil
	}
	return r.stdout, r.stderr
}

// local runs a command on the host. A test guard that exits non-zero skips
// the command.
func (r *run) local(ctx context.Context, t *taskfile.Task, out *CommandOutcome, eff effective, c *taskfile.LocalRun, env *runtime.Environment) {
	shell := runtime.ShellFrom(c.Shell, eff.shell)
	dir := runtime.ResolveDir(eff.dir, c.WorkDir)
	stdout, stderr := r.outputs(eff)

	if c.Test != "" {
		guard := r.executor.Execute(ctx, &runtime.Invocation{
			Shell: shell, Script: c.Test, Dir: dir, Env: env.Slice(),
			Stdout: stdout, Stderr: stderr,
		})
		if guard.Error != nil {
			r.fail(t, out, int(guard.ExitCode), guard.Error)
			return
		}
		if !guard.ExitCode.IsSuccess() {
			slog.Debug("test guard declined command", "task", t.Name, "command", out.Index+1, "test", c.Test)
			out.Skipped = true
			return
		}
	}

	inv := &runtime.Invocation{
		Shell: shell, Script: c.Command, Dir: dir, Env: env.Slice(),
		Stdout: stdout, Stderr: stderr,
	}
	if c.Interactive {
		inv.Stdin, inv.Stdout, inv.Stderr = r.stdin, r.ttyOut, r.ttyErr
	}

	res := r.executor.Execute(ctx, inv)
	out.ExitCode = int(res.ExitCode)
	out.Duration = res.Duration
	if !res.Success() {
		r.fail(t, out, int(res.ExitCode), res.Err())
	}
}

// containerRun runs an argument vector in a disposable container that sees
// the task directory at /workdir and only the declared environment.
func (r *run) containerRun(ctx context.Context, t *taskfile.Task, out *CommandOutcome, eff effective, c *taskfile.ContainerRun, env *runtime.Environment) {
	engine, err := r.containerProbe()
	if err != nil {
		r.fail(t, out, 1, err)
		return
	}

	stdout, stderr := r.outputs(eff)
	res, err := engine.Run(ctx, container.RunOptions{
		Image:       c.Image,
		Command:     c.Argv,
		HostWorkDir: eff.dir,
		Volumes:     c.MountedPaths,
		Env:         env.Declared(),
		Stdout:      stdout,
		Stderr:      stderr,
	})
	switch {
	case err != nil:
		r.fail(t, out, 1, err)
	case res.Error != nil:
		r.fail(t, out, res.ExitCode, res.Error)
	case res.ExitCode != 0:
		r.fail(t, out, res.ExitCode, nil)
	}
}

// containerBuild builds an image, resolving tag and label values first.
func (r *run) containerBuild(ctx context.Context, t *taskfile.Task, out *CommandOutcome, eff effective, c *taskfile.ContainerBuild, env *runtime.Environment) {
	containerfile, err := container.DetectContainerfile(eff.dir, c.Context, c.Containerfile)
	if err != nil {
		r.fail(t, out, 1, &ConfigError{Task: t.Name, Err: err})
		return
	}

	resolver := &container.ValueResolver{
		Clock: r.clock,
		VCS:   r.vcs,
		Env:   env.Merged(),
		Capture: func(ctx context.Context, script string) (string, error) {
			res := runtime.Capture(ctx, r.executor, runtime.Invocation{
				Shell: eff.shell, Script: script, Dir: eff.dir, Env: env.Slice(),
			})
			if !res.Success() {
				return "", res.Err()
			}
			return res.Output, nil
		},
	}

	opts := container.BuildOptions{
		ContextDir:    c.Context,
		Containerfile: containerfile,
		BuildArgs:     c.BuildArgs,
		SBOM:          c.SBOM,
		NoCache:       c.NoCache,
		ForceRM:       c.ForceRM,
		Dir:           eff.dir,
		Env:           env.Slice(),
	}
	opts.Stdout, opts.Stderr = r.outputs(eff)

	tags := c.Tags
	if len(tags) == 0 {
		tags = []string{container.DefaultTag}
	}
	for _, tag := range tags {
		v, err := resolver.Tag(ctx, tag)
		if err != nil {
			r.fail(t, out, 1, err)
			return
		}
		opts.Tags = append(opts.Tags, c.ImageName+":"+v)
	}
	for _, label := range c.Labels {
		v, err := resolver.Label(ctx, label)
		if err != nil {
			r.fail(t, out, 1, err)
			return
		}
		opts.Labels = append(opts.Labels, v)
	}

	engine, err := r.containerProbe()
	if err != nil {
		r.fail(t, out, 1, err)
		return
	}
	if err := engine.Build(ctx, opts); err != nil {
		code := 1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		r.fail(t, out, code, err)
	}
}

// taskRun runs another task through the execution record. Its verbose value
// is handed down to the target's commands.
func (r *run) taskRun(ctx context.Context, out *CommandOutcome, c *taskfile.TaskRun) {
	err := r.task(withInheritedVerbose(ctx, c.Verbose), c.Task)
	if err == nil {
		return
	}
	out.Err = err
	out.ExitCode = 1
	var cf *CommandFailedError
	if errors.As(err, &cf) && cf.ExitCode > 0 {
		out.ExitCode = cf.ExitCode
	}
}

func (r *run) fail(t *taskfile.Task, out *CommandOutcome, code int, err error) {
	if code == 0 {
		code = 1
	}
	out.ExitCode = code
	out.Err = &CommandFailedError{Task: t.Name, Index: out.Index, Kind: out.Kind, ExitCode: code, Err: err}
}
