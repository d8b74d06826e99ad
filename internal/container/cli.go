// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// availabilityTimeout bounds the version probe used to decide whether an
// engine answers.
const availabilityTimeout = 10 * time.Second

// CLIEngine drives docker or podman through its command line. The two only
// differ in binary name and in how their version is queried.
type CLIEngine struct {
	*BaseCLIEngine
	kind          EngineType
	versionFormat string
}

// NewDockerEngine creates an engine backed by the docker CLI. Docker reports
// the daemon version so the probe fails when only the client is installed.
func NewDockerEngine(opts ...BaseCLIEngineOption) *CLIEngine {
	return newCLIEngine(EngineTypeDocker, "{{.Server.Version}}", opts)
}

// NewPodmanEngine creates an engine backed by the podman CLI.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *CLIEngine {
	return newCLIEngine(EngineTypePodman, "{{.Version}}", opts)
}

func newCLIEngine(kind EngineType, versionFormat string, opts []BaseCLIEngineOption) *CLIEngine {
	path, _ := exec.LookPath(string(kind))
	opts = append([]BaseCLIEngineOption{WithName(string(kind))}, opts...)
	return &CLIEngine{
		BaseCLIEngine: NewBaseCLIEngine(path, opts...),
		kind:          kind,
		versionFormat: versionFormat,
	}
}

// Name returns the engine name.
func (e *CLIEngine) Name() string {
	return string(e.kind)
}

// Available reports whether the engine binary exists and answers a version
// query.
func (e *CLIEngine) Available() bool {
	if e.BinaryPath() == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), availabilityTimeout)
	defer cancel()
	return e.command(ctx, "version", "--format", e.versionFormat).Run() == nil
}

// Version returns the engine version.
func (e *CLIEngine) Version(ctx context.Context) (string, error) {
	out, err := e.output(ctx, "version", "--format", e.versionFormat)
	if err != nil {
		return "", fmt.Errorf("failed to get %s version: %w", e.kind, err)
	}
	return strings.TrimSpace(out), nil
}
