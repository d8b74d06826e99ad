// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mkrun/mk/internal/vcs"
)

const (
	// TokenNow resolves to the build time.
	TokenNow = "MK_NOW"
	// TokenGitRevision resolves to the current commit hash.
	TokenGitRevision = "MK_GIT_REVISION"
	// TokenGitRemoteOrigin resolves to the URL of the origin remote.
	TokenGitRemoteOrigin = "MK_GIT_REMOTE_ORIGIN"

	// UnknownValue replaces a source-control token that cannot be resolved.
	UnknownValue = "unknown"

	// NowLayout renders TokenNow as %Y-%m-%dT%H:%M:%S%z.
	NowLayout = "2006-01-02T15:04:05-0700"
)

var (
	shellValuePattern    = regexp.MustCompile(`^\$\((.+)\)$`)
	templateValuePattern = regexp.MustCompile(`^\$\{\{(.+)\}\}$`)
	envTemplatePattern   = regexp.MustCompile(`^\s*env\.([A-Za-z_][A-Za-z0-9_]*)\s*$`)
)

type (
	// Clock supplies the time used for TokenNow.
	Clock interface {
		Now() time.Time
	}

	// CaptureFunc runs script in the task shell and returns its trimmed
	// standard output.
	CaptureFunc func(ctx context.Context, script string) (string, error)

	// ValueResolver expands tag and label values of an image build at
	// execution time.
	ValueResolver struct {
		Clock Clock
		VCS   vcs.Metadata
		// Capture evaluates $(cmd) values. Nil leaves them unexpanded.
		Capture CaptureFunc
		// Env backs ${{ env.NAME }} templates.
		Env map[string]string
	}

	systemClock struct{}
)

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock reading the local wall clock.
func SystemClock() Clock { return systemClock{} }

// Label resolves a key=value label. The well-known tokens are recognized
// only as the whole value; a label without '=' is passed through.
func (r *ValueResolver) Label(ctx context.Context, label string) (string, error) {
	label = strings.TrimSpace(label)
	key, value, ok := strings.Cut(label, "=")
	if !ok {
		return label, nil
	}

	switch value {
	case TokenNow:
		return key + "=" + r.now().Format(NowLayout), nil
	case TokenGitRevision:
		return key + "=" + r.metadata(ctx, vcs.Metadata.Revision), nil
	case TokenGitRemoteOrigin:
		return key + "=" + r.metadata(ctx, vcs.Metadata.RemoteOrigin), nil
	}

	resolved, err := r.expand(ctx, value)
	if err != nil {
		return "", fmt.Errorf("label %q: %w", key, err)
	}
	return key + "=" + resolved, nil
}

// Tag resolves a single tag value.
func (r *ValueResolver) Tag(ctx context.Context, tag string) (string, error) {
	resolved, err := r.expand(ctx, strings.TrimSpace(tag))
	if err != nil {
		return "", fmt.Errorf("tag %q: %w", tag, err)
	}
	return resolved, nil
}

func (r *ValueResolver) expand(ctx context.Context, value string) (string, error) {
	if m := shellValuePattern.FindStringSubmatch(value); m != nil && r.Capture != nil {
		out, err := r.Capture(ctx, m[1])
		if err != nil {
			return "", fmt.Errorf("evaluate %s: %w", value, err)
		}
		return out, nil
	}

	if m := templateValuePattern.FindStringSubmatch(value); m != nil {
		env := envTemplatePattern.FindStringSubmatch(m[1])
		if env == nil {
			return "", fmt.Errorf("unsupported template %s", value)
		}
		v, ok := r.Env[env[1]]
		if !ok {
			return "", fmt.Errorf("environment variable %s is not set", env[1])
		}
		return v, nil
	}

	return value, nil
}

func (r *ValueResolver) now() time.Time {
	if r.Clock == nil {
		return time.Now()
	}
	return r.Clock.Now()
}

func (r *ValueResolver) metadata(ctx context.Context, lookup func(vcs.Metadata, context.Context) (string, error)) string {
	if r.VCS == nil {
		return UnknownValue
	}
	v, err := lookup(r.VCS, ctx)
	if err != nil || v == "" {
		return UnknownValue
	}
	return v
}
