// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// engineErrorExitCode is what docker and podman exit with when the engine
// itself failed rather than the build or container.
const engineErrorExitCode = 125

// transientMarkers are engine messages for failures that usually pass on a
// second attempt: rootless podman races, registry name lookups and overlay
// mount contention.
var transientMarkers = []string{
	"ping_group_range",
	"OCI runtime error",
	"Temporary failure resolving",
	"Could not resolve host",
	"connection timed out",
	"connection refused",
	"error creating overlay mount",
	"error mounting layer",
}

// retryPolicy retries transient engine failures with exponential backoff.
type retryPolicy struct {
	attempts int
	backoff  time.Duration
}

// do runs op until it succeeds, fails permanently or attempts run out, and
// returns the last error. Waiting between attempts stops on cancellation.
func (p retryPolicy) do(ctx context.Context, engine string, op func() error) error {
	var err error
	for attempt := range max(p.attempts, 1) {
		if attempt > 0 {
			slog.Debug("retrying container build", "engine", engine, "attempt", attempt+1, "error", err)
			if werr := wait(ctx, p.backoff<<(attempt-1)); werr != nil {
				return fmt.Errorf("retry aborted: %w", werr)
			}
		}
		if err = op(); err == nil || !isTransient(err) {
			return err
		}
	}
	return err
}

// isTransient reports whether err is an engine failure worth retrying.
// Cancellation never is.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == engineErrorExitCode {
		return true
	}

	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
