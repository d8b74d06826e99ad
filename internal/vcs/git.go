// SPDX-License-Identifier: MPL-2.0

// Package vcs looks up source-control metadata for image labels.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrGitNotFound is returned when no git binary is on PATH.
var ErrGitNotFound = errors.New("git not found")

type (
	// Metadata provides the revision and remote of the working tree.
	Metadata interface {
		Revision(ctx context.Context) (string, error)
		RemoteOrigin(ctx context.Context) (string, error)
	}

	// Git reads metadata by running the git CLI in Dir.
	Git struct {
		Dir string
	}
)

// NewGit creates a Git reader rooted at dir.
func NewGit(dir string) *Git {
	return &Git{Dir: dir}
}

// Revision returns the full commit hash of HEAD.
func (g *Git) Revision(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "HEAD")
}

// RemoteOrigin returns the URL of the "origin" remote.
func (g *Git) RemoteOrigin(ctx context.Context) (string, error) {
	return g.run(ctx, "config", "--get", "remote.origin.url")
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	bin, err := exec.LookPath("git")
	if err != nil {
		return "", ErrGitNotFound
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = g.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("git %s: empty output", strings.Join(args, " "))
	}
	return out, nil
}
