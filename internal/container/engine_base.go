// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os/exec"
	"slices"
	"time"

	"github.com/mkrun/mk/internal/issue"
)

const (
	// DefaultBuildAttempts bounds how often a build failing transiently is
	// retried.
	DefaultBuildAttempts = 3

	defaultRetryBackoff = 2 * time.Second

	// stderrTailSize bounds the build stderr kept for failure messages.
	stderrTailSize = 4 << 10
)

type (
	// ExecCommandFunc matches exec.CommandContext; tests swap in a recorder.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption customizes a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine is the part of the docker and podman drivers that does
	// not depend on which binary is behind it.
	BaseCLIEngine struct {
		name        string
		binaryPath  string
		execCommand ExecCommandFunc
		retry       retryPolicy
	}
)

// WithName labels the engine in messages and logs.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.name = name }
}

// WithExecCommand replaces exec.CommandContext.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.execCommand = fn }
}

// WithBinaryPath overrides the engine binary found on PATH.
func WithBinaryPath(path string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.binaryPath = path }
}

// WithBuildRetries sets how many attempts a transiently failing build gets
// and the base backoff between them.
func WithBuildRetries(attempts int, backoff time.Duration) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.retry = retryPolicy{attempts: max(attempts, 1), backoff: backoff}
	}
}

// NewBaseCLIEngine returns an engine invoking binaryPath.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
		retry:       retryPolicy{attempts: DefaultBuildAttempts, backoff: defaultRetryBackoff},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *BaseCLIEngine) Name() string { return e.name }

// BinaryPath is empty when the binary was not found.
func (e *BaseCLIEngine) BinaryPath() string { return e.binaryPath }

// BuildArgs returns the argument vector of an image build:
//
//	build [--sbom=true] [--no-cache=true] [--force-rm=true]
//	      [--build-arg a]... [--label k=v]... [-t tag]... [-f file] <context>
func (e *BaseCLIEngine) BuildArgs(opts BuildOptions) []string {
	args := []string{"build"}

	for _, flag := range []struct {
		on   bool
		name string
	}{
		{opts.SBOM, "--sbom=true"},
		{opts.NoCache, "--no-cache=true"},
		{opts.ForceRM, "--force-rm=true"},
	} {
		if flag.on {
			args = append(args, flag.name)
		}
	}

	args = appendRepeated(args, "--build-arg", opts.BuildArgs)
	args = appendRepeated(args, "--label", opts.Labels)
	args = appendRepeated(args, "-t", opts.Tags)

	if opts.Containerfile != "" {
		args = append(args, "-f", opts.Containerfile)
	}
	return append(args, opts.ContextDir)
}

// RunArgs returns the argument vector of a disposable container run. The
// host work dir is always mounted; env entries are sorted by key.
//
//	run --rm -i -v <host>:/workdir:z -w /workdir [-v mount]... [-e K=V]... <image> [argv...]
func (e *BaseCLIEngine) RunArgs(opts RunOptions) []string {
	args := []string{
		"run", "--rm", "-i",
		"-v", opts.HostWorkDir + ":" + HostWorkDirTarget + ":z",
		"-w", HostWorkDirTarget,
	}
	args = appendRepeated(args, "-v", opts.Volumes)
	for _, k := range slices.Sorted(maps.Keys(opts.Env)) {
		args = append(args, "-e", k+"="+opts.Env[k])
	}
	args = append(args, opts.Image)
	return append(args, opts.Command...)
}

func appendRepeated(args []string, flag string, values []string) []string {
	for _, v := range values {
		args = append(args, flag, v)
	}
	return args
}

func (e *BaseCLIEngine) command(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// output runs the engine binary and returns its stdout.
func (e *BaseCLIEngine) output(ctx context.Context, args ...string) (string, error) {
	var stdout bytes.Buffer
	cmd := e.command(ctx, args...)
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %v: %w", e.binaryPath, args, err)
	}
	return stdout.String(), nil
}

// Build builds an image. Failures the engine reports as transient are
// retried with exponential backoff. The end of the engine's stderr is kept in
// the returned error.
func (e *BaseCLIEngine) Build(ctx context.Context, opts BuildOptions) error {
	args := e.BuildArgs(opts)

	err := e.retry.do(ctx, e.name, func() error {
		cmd := e.command(ctx, args...)
		cmd.Dir = opts.Dir
		if opts.Env != nil {
			cmd.Env = append(cmd.Env, opts.Env...)
		}
		tail := &tailBuffer{limit: stderrTailSize}
		cmd.Stdout, cmd.Stderr = opts.Stdout, tail
		if opts.Stderr != nil {
			cmd.Stderr = io.MultiWriter(opts.Stderr, tail)
		}
		if err := cmd.Run(); err != nil {
			if msg := tail.String(); msg != "" {
				return fmt.Errorf("%w: %s", err, msg)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return buildFailure(e.name, opts, err)
	}
	return nil
}

// Run starts a disposable container. The command's exit status lands in
// RunResult.ExitCode; RunResult.Error is only set when the engine itself
// could not be run.
func (e *BaseCLIEngine) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if opts.Image == "" {
		return nil, errors.New("container image must not be empty")
	}

	cmd := e.command(ctx, e.RunArgs(opts)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = opts.Stdin, opts.Stdout, opts.Stderr

	res := &RunResult{}
	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = 1
		res.Error = issue.NewErrorContext().
			WithOperation("run container").
			WithResource(opts.Image).
			WithSuggestions(
				"Check that the image exists: "+e.name+" images",
				"Check that every mounted_paths entry exists on the host",
			).
			Wrap(err).
			BuildError()
	}
	return res, nil
}

func buildFailure(engine string, opts BuildOptions, cause error) error {
	resource := opts.ContextDir
	if len(opts.Tags) > 0 {
		resource = opts.Tags[0]
	}
	if opts.Containerfile != "" {
		resource = opts.Containerfile
	}

	return issue.NewErrorContext().
		WithOperation("build container image").
		WithResource(resource).
		WithSuggestions(
			"Look for syntax errors in the containerfile",
			"Check that the build context directory exists",
			"Pull the base image by hand: "+engine+" pull <base-image>",
			"Set verbose: true on the command to see the build log",
		).
		Wrap(cause).
		BuildError()
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(bytes.TrimSpace(b.buf))
}
