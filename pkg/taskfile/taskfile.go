// SPDX-License-Identifier: MPL-2.0

package taskfile

import (
	"errors"
	"fmt"
)

// ErrTaskNotFound is returned when a task name is not declared.
var ErrTaskNotFound = errors.New("task not found")

type (
	// TaskFile is a loaded, validated task file with its includes merged.
	TaskFile struct {
		// Path is the file that was loaded.
		Path string
		// Dir is the directory relative paths in the file resolve against.
		Dir string
		// Environment is the global environment applied to every task.
		Environment map[string]string
		// EnvFiles are global dotenv files, relative to Dir.
		EnvFiles []string
		// Includes lists the include directives of the root file.
		Includes []Include
		// Warnings collects non-fatal load diagnostics.
		Warnings []string

		tasks []*Task
		index map[string]int
	}

	// Task is a single named task. It is immutable once loaded.
	Task struct {
		Name          string
		Commands      []Command
		Preconditions []Precondition
		DependsOn     []string
		Labels        map[string]string
		Description   string
		Environment   map[string]string
		EnvFiles      []string
		Shell         *Shell
		Parallel      bool
		IgnoreErrors  *bool
		Verbose       *bool
		// Dir is the directory of the file that declared the task. Env files
		// and the default working directory resolve against it.
		Dir string
	}

	// Shell selects the program that runs command strings. Args replace the
	// program's default flags when set.
	Shell struct {
		Command string   `mapstructure:"command"`
		Args    []string `mapstructure:"args"`
	}

	// Precondition is a gating check run before a task's commands.
	Precondition struct {
		Command string `mapstructure:"command"`
		Message string `mapstructure:"message"`
		Shell   *Shell `mapstructure:"shell"`
		WorkDir string `mapstructure:"work_dir"`
		Verbose *bool  `mapstructure:"verbose"`
	}

	// Include names another task file to merge. Tasks already declared are
	// kept unless Overwrite is set.
	Include struct {
		Name      string `mapstructure:"name"`
		Overwrite bool   `mapstructure:"overwrite"`
	}

	// TaskNotFoundError reports a lookup of an undeclared task.
	TaskNotFoundError struct {
		Name string
	}
)

// Error implements the error interface.
func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task %q not found", e.Name)
}

// Unwrap returns ErrTaskNotFound for errors.Is() compatibility.
func (e *TaskNotFoundError) Unwrap() error { return ErrTaskNotFound }

// New creates an empty TaskFile rooted at dir.
func New(path, dir string) *TaskFile {
	return &TaskFile{Path: path, Dir: dir, index: make(map[string]int)}
}

// Tasks returns the tasks in declaration order.
func (f *TaskFile) Tasks() []*Task {
	return append([]*Task(nil), f.tasks...)
}

// Names returns the task names in declaration order.
func (f *TaskFile) Names() []string {
	names := make([]string, len(f.tasks))
	for i, t := range f.tasks {
		names[i] = t.Name
	}
	return names
}

// Task looks up a task by name.
func (f *TaskFile) Task(name string) (*Task, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, &TaskNotFoundError{Name: name}
	}
	return f.tasks[i], nil
}

// Has reports whether a task is declared.
func (f *TaskFile) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Add declares a task. An existing task with the same name is replaced in
// place when overwrite is set and kept otherwise; Add reports whether the
// task was stored.
func (f *TaskFile) Add(t *Task, overwrite bool) bool {
	if f.index == nil {
		f.index = make(map[string]int)
	}
	if i, ok := f.index[t.Name]; ok {
		if !overwrite {
			return false
		}
		f.tasks[i] = t
		return true
	}
	f.index[t.Name] = len(f.tasks)
	f.tasks = append(f.tasks, t)
	return true
}

// TaskRuns returns the targets of the task's TaskRun commands in order.
func (t *Task) TaskRuns() []string {
	var out []string
	for _, c := range t.Commands {
		if tr, ok := c.(*TaskRun); ok {
			out = append(out, tr.Task)
		}
	}
	return out
}

// Program returns the shell program, or "" for a nil shell.
func (s *Shell) Program() string {
	if s == nil {
		return ""
	}
	return s.Command
}
