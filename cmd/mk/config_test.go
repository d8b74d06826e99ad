// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/mkrun/mk/internal/config"
)

func TestConfigShow_FlagOverrides(t *testing.T) {
	t.Parallel()
	app, stdout, _ := newTestApp(t)

	if err := executeCommand(t, app, "config", "show", "--engine", "podman", "--max-parallel", "2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{`container_engine: "podman"`, "max_parallel:     2", `taskfile:         "tasks.yaml"`} {
		if !strings.Contains(out, want) {
			t.Errorf("config show output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShow_LoadFailure(t *testing.T) {
	t.Parallel()
	app, _, stderr := newTestApp(t)
	app.Config = staticProvider{err: errors.New("settings file is broken")}

	err := executeCommand(t, app, "config", "show")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("expected ExitError with code 1, got %v", err)
	}
	if !strings.Contains(stderr.String(), "settings file is broken") {
		t.Errorf("stderr should carry the load error, got %q", stderr.String())
	}
}

func TestLoadSettings_RejectsNegativeParallelism(t *testing.T) {
	t.Parallel()
	app, _, _ := newTestApp(t)

	err := executeCommand(t, app, "config", "show", "--max-parallel=-1")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
}

func TestConfigPath_ExplicitSettings(t *testing.T) {
	t.Parallel()
	app, stdout, _ := newTestApp(t)
	path := writeTaskfile(t, "settings.cue", config.GenerateCUE(config.DefaultConfig()))

	if err := executeCommand(t, app, "--settings", path, "config", "path"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != path {
		t.Errorf("config path = %q, want %q", stdout.String(), path)
	}
}
