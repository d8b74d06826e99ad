// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"

	"github.com/mkrun/mk/internal/dag"
	"github.com/mkrun/mk/internal/runtime"
	"github.com/mkrun/mk/pkg/taskfile"
)

// Graph builds the hard-dependency graph of the task file, with nodes and
// edges in declaration order.
func (e *Engine) Graph() *dag.Graph {
	g := dag.New()
	for _, t := range e.file.Tasks() {
		g.AddNode(t.Name)
	}
	for _, t := range e.file.Tasks() {
		for _, dep := range t.DependsOn {
			g.AddDependency(t.Name, dep)
		}
	}
	return g
}

// Order returns the tasks the roots need, dependencies first.
func (e *Engine) Order(roots ...string) ([]string, error) {
	order, err := e.Graph().Order(roots...)
	return order, wrapGraphError(err)
}

// plan validates everything the roots can reach before any side effect and
// returns the execution order of their hard-dependency closure.
//
// Reachability follows both declared dependencies and task commands, so a
// task that is only invoked conditionally is still checked.
func (e *Engine) plan(roots []string) ([]string, error) {
	if len(roots) == 0 {
		return nil, &ConfigError{Err: errors.New("no task given")}
	}

	g := e.Graph()
	reachable, err := g.Closure(roots, func(name string) []string {
		if t, err := e.file.Task(name); err == nil {
			return t.TaskRuns()
		}
		return nil
	})
	if err != nil {
		return nil, wrapGraphError(err)
	}

	if _, err := g.Order(reachable...); err != nil {
		return nil, wrapGraphError(err)
	}

	for _, name := range reachable {
		t, err := e.file.Task(name)
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		if err := e.checkTask(t); err != nil {
			return nil, err
		}
	}

	order, err := g.Order(roots...)
	return order, wrapGraphError(err)
}

// checkTask rejects commands that cannot run as declared.
func (e *Engine) checkTask(t *taskfile.Task) error {
	taskShell := runtime.ShellFrom(t.Shell, e.shell)
	for i, cmd := range t.Commands {
		var (
			script string
			shell  = taskShell
		)
		switch c := cmd.(type) {
		case *taskfile.CommandRun:
			script = c.Raw
		case *taskfile.LocalRun:
			if c.Interactive && t.Parallel {
				return &ConfigError{Task: t.Name, Err: fmt.Errorf("command #%d: interactive commands cannot run in a parallel task", i+1)}
			}
			script = c.Command
			shell = runtime.ShellFrom(c.Shell, taskShell)
			if shell.IsEmbedded() && c.Test != "" {
				if err := runtime.ValidateScript(c.Test); err != nil {
					return &ConfigError{Task: t.Name, Err: fmt.Errorf("command #%d test: %w", i+1, err)}
				}
			}
		}
		if script != "" && shell.IsEmbedded() {
			if err := runtime.ValidateScript(script); err != nil {
				return &ConfigError{Task: t.Name, Err: fmt.Errorf("command #%d: %w", i+1, err)}
			}
		}
	}
	return nil
}

// wrapGraphError reports unknown references as configuration errors. Cycle
// errors are returned as they are.
func wrapGraphError(err error) error {
	var unknown *dag.UnknownNodeError
	if errors.As(err, &unknown) {
		return &ConfigError{Task: unknown.From, Err: err}
	}
	return err
}
