// SPDX-License-Identifier: MPL-2.0

package taskfile

// Command kinds, one per variant of the Command union.
const (
	KindCommandRun     CommandKind = "command_run"
	KindLocalRun       CommandKind = "local_run"
	KindContainerRun   CommandKind = "container_run"
	KindContainerBuild CommandKind = "container_build"
	KindTaskRun        CommandKind = "task_run"
)

type (
	// CommandKind names a Command variant.
	CommandKind string

	// Command is the closed union of command kinds a task can run. The
	// variants are *CommandRun, *LocalRun, *ContainerRun, *ContainerBuild and
	// *TaskRun; consumers switch on the concrete type.
	Command interface {
		Kind() CommandKind
		command()
	}

	// CommandRun is a bare command string run in the task's shell.
	CommandRun struct {
		Raw string
	}

	// LocalRun runs a command on the host.
	LocalRun struct {
		Command string `mapstructure:"command"`
		Shell   *Shell `mapstructure:"shell"`
		// Test is a guard run first in the same shell; a non-zero exit skips
		// the command.
		Test        string `mapstructure:"test"`
		WorkDir     string `mapstructure:"work_dir"`
		Interactive bool   `mapstructure:"interactive"`
		// IgnoreErrors and Verbose fall back to the task's values when nil.
		IgnoreErrors *bool `mapstructure:"ignore_errors"`
		Verbose      *bool `mapstructure:"verbose"`
	}

	// ContainerRun runs an argument vector in a disposable container.
	ContainerRun struct {
		Argv         []string `mapstructure:"container_command"`
		Image        string   `mapstructure:"image"`
		MountedPaths []string `mapstructure:"mounted_paths"`
		IgnoreErrors *bool    `mapstructure:"ignore_errors"`
		Verbose      *bool    `mapstructure:"verbose"`
	}

	// ContainerBuild builds an image. It has no ignore_errors of its own and
	// follows the task's.
	ContainerBuild struct {
		ImageName string
		Context   string
		// Containerfile is optional; the build looks for a Dockerfile, then a
		// Containerfile, in Context.
		Containerfile string
		Tags          []string
		BuildArgs     []string
		Labels        []string
		SBOM          bool
		NoCache       bool
		ForceRM       bool
		Verbose       *bool
	}

	// TaskRun invokes another task.
	TaskRun struct {
		Task         string `mapstructure:"task"`
		IgnoreErrors *bool  `mapstructure:"ignore_errors"`
		Verbose      *bool  `mapstructure:"verbose"`
	}
)

func (*CommandRun) Kind() CommandKind     { return KindCommandRun }
func (*LocalRun) Kind() CommandKind       { return KindLocalRun }
func (*ContainerRun) Kind() CommandKind   { return KindContainerRun }
func (*ContainerBuild) Kind() CommandKind { return KindContainerBuild }
func (*TaskRun) Kind() CommandKind        { return KindTaskRun }

func (*CommandRun) command()     {}
func (*LocalRun) command()       {}
func (*ContainerRun) command()   {}
func (*ContainerBuild) command() {}
func (*TaskRun) command()        {}

// String returns the kind name.
func (k CommandKind) String() string { return string(k) }
