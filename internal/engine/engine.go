// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mkrun/mk/internal/container"
	"github.com/mkrun/mk/internal/runtime"
	"github.com/mkrun/mk/internal/vcs"
	"github.com/mkrun/mk/pkg/taskfile"
)

type (
	// Engine runs tasks of one task file.
	Engine struct {
		file     *taskfile.TaskFile
		executor runtime.Executor
		resolver *runtime.Resolver
		hostEnv  map[string]string
		shell    runtime.Shell
		verbose  bool

		maxParallel int
		stdin       io.Reader
		stdout      io.Writer
		stderr      io.Writer
		// ttyOut and ttyErr are the unwrapped streams handed to interactive
		// commands so they can detect a terminal.
		ttyOut io.Writer
		ttyErr io.Writer

		engineType     container.EngineType
		engineOpts     []container.BaseCLIEngineOption
		containerProbe func() (container.Engine, error)
		vcs            vcs.Metadata
		clock          container.Clock
	}

	// Option configures an Engine.
	Option func(*Engine)

	// run holds the state of one Run call.
	run struct {
		*Engine
		record *record
		result *RunResult
	}
)

// WithExecutor replaces the script executor.
func WithExecutor(ex runtime.Executor) Option {
	return func(e *Engine) {
		e.executor = ex
	}
}

// WithShell sets the shell used when neither a command nor its task names one.
func WithShell(s runtime.Shell) Option {
	return func(e *Engine) {
		e.shell = s
	}
}

// WithVerbose sets whether command output is shown when neither a command
// nor its task sets verbose.
func WithVerbose(v bool) Option {
	return func(e *Engine) {
		e.verbose = v
	}
}

// WithMaxParallel caps the commands a parallel task runs at once; zero or
// less means no cap.
func WithMaxParallel(n int) Option {
	return func(e *Engine) {
		e.maxParallel = n
	}
}

// WithStreams sets the standard streams commands write to. Interactive
// commands also read stdin.
func WithStreams(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(e *Engine) {
		e.stdin = stdin
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithHostEnv replaces the inherited host environment.
func WithHostEnv(env map[string]string) Option {
	return func(e *Engine) {
		e.hostEnv = env
	}
}

// WithEnvResolver replaces the environment resolver.
func WithEnvResolver(r *runtime.Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithContainerEngine sets the preferred container engine and options for
// the engines that are probed.
func WithContainerEngine(t container.EngineType, opts ...container.BaseCLIEngineOption) Option {
	return func(e *Engine) {
		e.engineType = t
		e.engineOpts = opts
	}
}

// WithContainerProbe replaces container engine discovery.
func WithContainerProbe(probe func() (container.Engine, error)) Option {
	return func(e *Engine) {
		e.containerProbe = probe
	}
}

// WithVCS sets the source-control lookups behind the revision and origin
// label tokens.
func WithVCS(m vcs.Metadata) Option {
	return func(e *Engine) {
		e.vcs = m
	}
}

// WithClock sets the clock behind the MK_NOW label token.
func WithClock(c container.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine for file.
func New(file *taskfile.TaskFile, opts ...Option) *Engine {
	e := &Engine{
		file:       file,
		executor:   runtime.NewShellExecutor(),
		resolver:   runtime.NewResolver(),
		shell:      runtime.Shell{Program: runtime.DefaultShell},
		verbose:    true,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		engineType: container.EngineTypeDocker,
		clock:      container.SystemClock(),
		vcs:        vcs.NewGit(file.Dir),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.hostEnv == nil {
		e.hostEnv = runtime.HostEnv()
	}
	e.ttyOut, e.ttyErr = e.stdout, e.stderr
	e.stdout = &syncWriter{w: e.stdout}
	e.stderr = &syncWriter{w: e.stderr}
	if e.containerProbe == nil {
		e.containerProbe = sync.OnceValues(func() (container.Engine, error) {
			return container.NewEngine(e.engineType, e.engineOpts...)
		})
	}
	return e
}

// Run executes the named tasks and everything they depend on. All task
// references and dependency cycles are checked before any command runs.
// Tasks run one after another in dependency order; the first unignored
// failure stops scheduling and is returned, along with the partial result.
// A task that already failed under an ignoring TaskRun fails the run when it
// is reached again.
func (e *Engine) Run(ctx context.Context, names ...string) (*RunResult, error) {
	order, err := e.plan(names)
	if err != nil {
		return nil, err
	}

	r := &run{Engine: e, record: newRecord(), result: newRunResult()}
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			r.result.Err = err
			break
		}
		if err := r.task(ctx, name); err != nil {
			r.result.Err = err
			break
		}
	}
	return r.result, r.result.Err
}

// task runs name at most once per run and returns its outcome. Callers that
// reach a finished task get its recorded result without running it again.
func (r *run) task(ctx context.Context, name string) error {
	caller := callerOf(ctx)
	owner, err := r.record.acquire(ctx, caller, name)
	if !owner {
		return err
	}

	t, lookupErr := r.file.Task(name)
	if lookupErr != nil {
		err = &ConfigError{Task: caller, Err: lookupErr}
		r.record.release(caller, name, err)
		return err
	}

	r.result.start(name)
	start := time.Now()
	slog.Debug("running task", "task", name)

	commands, err := r.execute(withCaller(ctx, name), t)

	r.result.finish(name, err, time.Since(start), commands)
	r.record.release(caller, name, err)
	if err != nil {
		slog.Debug("task failed", "task", name, "error", err)
	}
	return err
}

// execute runs one task: its dependencies, its preconditions, then its
// commands.
func (r *run) execute(ctx context.Context, t *taskfile.Task) ([]CommandOutcome, error) {
	for _, dep := range t.DependsOn {
		if err := r.task(ctx, dep); err != nil {
			return nil, &DependencyFailedError{Task: t.Name, Dependency: dep, Err: err}
		}
	}

	global := runtime.Scope{Vars: r.file.Environment, Files: r.file.EnvFiles, Dir: r.file.Dir}
	vars, err := r.taskVars(ctx, t, global)
	if err != nil {
		return nil, &ConfigError{Task: t.Name, Err: err}
	}
	env, err := r.resolver.Resolve(r.hostEnv, global,
		runtime.Scope{Vars: vars, Files: t.EnvFiles, Dir: t.Dir},
	)
	if err != nil {
		return nil, &ConfigError{Task: t.Name, Err: err}
	}

	gate := &runtime.Gate{Executor: r.executor, Shell: r.shell, Stdout: r.stdout, Stderr: r.stderr}
	if err := gate.Check(ctx, t, env); err != nil {
		return nil, err
	}

	if t.Parallel {
		return r.runParallel(ctx, t, env)
	}
	return r.runSequential(ctx, t, env)
}

// taskVars evaluates $(cmd) values of the task environment in the task shell
// and directory. The commands see the host and global environment.
func (r *run) taskVars(ctx context.Context, t *taskfile.Task, global runtime.Scope) (map[string]string, error) {
	if !runtime.HasShellValues(t.Environment) {
		return t.Environment, nil
	}
	base, err := r.resolver.Resolve(r.hostEnv, global, runtime.Scope{})
	if err != nil {
		return nil, err
	}
	eff := r.resolveEffective(ctx, t, nil, nil)
	_, stderr := r.outputs(eff)
	return runtime.EvalVars(ctx, r.executor, runtime.Invocation{
		Shell:  eff.shell,
		Dir:    eff.dir,
		Env:    base.Slice(),
		Stderr: stderr,
	}, t.Environment)
}

// syncWriter serializes writes from commands of a parallel task.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
