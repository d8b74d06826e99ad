// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"io"
)

const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"

	// HostWorkDirTarget is where the invoking directory is mounted inside
	// every container started by a task.
	HostWorkDirTarget = "/workdir"

	// DefaultTag is applied when a build declares no tags.
	DefaultTag = "latest"
)

type (
	// Engine defines the container operations a task can request.
	Engine interface {
		// Name returns the engine name (docker or podman).
		Name() string
		// Available checks if the engine is usable on this host.
		Available() bool
		// Build builds an image from a containerfile.
		Build(ctx context.Context, opts BuildOptions) error
		// Run runs a command in a fresh container that is removed on exit.
		Run(ctx context.Context, opts RunOptions) (*RunResult, error)
	}

	// BuildOptions contains the resolved inputs of an image build.
	BuildOptions struct {
		// ContextDir is the build context directory.
		ContextDir string
		// Containerfile is the containerfile path passed with -f.
		Containerfile string
		// Tags are full image references (name:tag).
		Tags []string
		// BuildArgs are passed through verbatim as --build-arg values.
		BuildArgs []string
		// Labels are resolved key=value pairs.
		Labels []string
		SBOM   bool
		// NoCache disables the build cache.
		NoCache bool
		// ForceRM always removes intermediate containers.
		ForceRM bool
		// Dir is the working directory the engine CLI runs in; relative
		// context and containerfile paths resolve against it.
		Dir string
		// Env is the engine process environment; nil inherits the host's.
		Env    []string
		Stdout io.Writer
		Stderr io.Writer
	}

	// RunOptions contains options for running a container.
	RunOptions struct {
		// Image is the image to run.
		Image string
		// Command is the argv executed inside the container.
		Command []string
		// HostWorkDir is mounted at HostWorkDirTarget and used as the
		// container working directory.
		HostWorkDir string
		// Volumes are extra mounts passed through to -v unmodified.
		Volumes []string
		// Env is the declared task environment. Host variables are never
		// forwarded.
		Env    map[string]string
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// RunResult contains the result of running a container.
	RunResult struct {
		// ExitCode is the container's exit code.
		ExitCode int
		// Error is set when the engine could not be executed at all.
		Error error
	}

	// EngineType identifies the container engine type.
	EngineType string

	// ErrEngineNotAvailable is returned when no container engine can be used.
	ErrEngineNotAvailable struct {
		Engine string
		Reason string
	}

	// engineFactory creates an engine of one type; swapped in tests.
	engineFactory func(EngineType) Engine
)

func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// ParseEngineType converts a configured engine name into an EngineType.
func ParseEngineType(name string) (EngineType, error) {
	switch EngineType(name) {
	case EngineTypeDocker, EngineTypePodman:
		return EngineType(name), nil
	default:
		return "", fmt.Errorf("unknown container engine type: %s", name)
	}
}

// Other returns the fallback engine type.
func (t EngineType) Other() EngineType {
	if t == EngineTypePodman {
		return EngineTypeDocker
	}
	return EngineTypePodman
}

// NewEngine returns the preferred engine when it is available, falling back
// to the other engine type.
func NewEngine(preferred EngineType, opts ...BaseCLIEngineOption) (Engine, error) {
	return selectEngine(preferred, func(t EngineType) Engine {
		if t == EngineTypePodman {
			return NewPodmanEngine(opts...)
		}
		return NewDockerEngine(opts...)
	})
}

func selectEngine(preferred EngineType, newEngine engineFactory) (Engine, error) {
	if _, err := ParseEngineType(string(preferred)); err != nil {
		return nil, err
	}

	if engine := newEngine(preferred); engine.Available() {
		return engine, nil
	}
	fallback := preferred.Other()
	if engine := newEngine(fallback); engine.Available() {
		return engine, nil
	}

	return nil, &ErrEngineNotAvailable{
		Engine: string(preferred),
		Reason: fmt.Sprintf("%s is not installed or not accessible, and %s fallback is also not available", preferred, fallback),
	}
}
