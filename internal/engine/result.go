// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/mkrun/mk/pkg/taskfile"
)

const (
	NotStarted Status = iota
	Running
	Succeeded
	Failed
)

type (
	// Status is a task's state in one run.
	Status int

	// CommandOutcome is the result of one command of a task.
	CommandOutcome struct {
		Index    int
		Kind     taskfile.CommandKind
		ExitCode int
		Duration time.Duration
		// Skipped is set when a test guard declined the command.
		Skipped bool
		// Ignored is set when the command failed under ignore_errors.
		Ignored bool
		Err     error
	}

	// TaskResult is the recorded outcome of one task.
	TaskResult struct {
		Name     string
		Status   Status
		Err      error
		Duration time.Duration
		Commands []CommandOutcome
	}

	// RunResult collects the outcome of every task a run reached, in the
	// order they started.
	RunResult struct {
		// Err is the fatal error that ended the run, if any.
		Err error

		mu    sync.Mutex
		tasks []*TaskResult
		index map[string]*TaskResult
	}
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "not started"
	}
}

// Failed reports whether the command failed, ignored or not.
func (o CommandOutcome) Failed() bool {
	return o.Err != nil
}

func newRunResult() *RunResult {
	return &RunResult{index: make(map[string]*TaskResult)}
}

// Tasks returns a snapshot of the task results in start order.
func (r *RunResult) Tasks() []TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TaskResult, len(r.tasks))
	for i, t := range r.tasks {
		out[i] = *t
	}
	return out
}

// Task returns the result of a task, or false if the run never reached it.
func (r *RunResult) Task(name string) (TaskResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.index[name]
	if !ok {
		return TaskResult{}, false
	}
	return *t, true
}

// Failed reports whether an unignored failure reached the top of the run.
func (r *RunResult) Failed() bool {
	return r.Err != nil
}

// ExitCode is the process exit status for the run: the exit code of the
// failing command when one propagated, 1 for any other failure, 0 otherwise.
func (r *RunResult) ExitCode() int {
	if r.Err == nil {
		return 0
	}
	var cf *CommandFailedError
	if errors.As(r.Err, &cf) && cf.ExitCode > 0 {
		return cf.ExitCode
	}
	return 1
}

func (r *RunResult) start(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &TaskResult{Name: name, Status: Running}
	r.tasks = append(r.tasks, t)
	r.index[name] = t
}

func (r *RunResult) finish(name string, err error, d time.Duration, commands []CommandOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.index[name]
	t.Duration = d
	t.Commands = commands
	t.Err = err
	if err != nil {
		t.Status = Failed
	} else {
		t.Status = Succeeded
	}
}
