// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/mkrun/mk/internal/issue"
	"github.com/mkrun/mk/internal/testutil"
)

// isolated returns options that never see the real user config directory.
func isolated(t *testing.T) LoadOptions {
	t.Helper()
	return LoadOptions{ConfigDirPath: t.TempDir(), BaseDir: t.TempDir()}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.ContainerEngine != ContainerEngineDocker {
		t.Errorf("ContainerEngine = %s, want docker", cfg.ContainerEngine)
	}
	if cfg.DefaultShell != "sh" || cfg.Taskfile != "tasks.yaml" || cfg.MaxParallel != 0 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if !cfg.UI.Verbose || cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("unexpected UI defaults %+v", cfg.UI)
	}
	if cfg.Container.BuildRetries != 3 {
		t.Errorf("BuildRetries = %d, want 3", cfg.Container.BuildRetries)
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("defaults must be valid: %v", errs)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	cfg, path, err := loadWithOptions(t.Context(), opts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if path != "" {
		t.Errorf("expected no settings file, got %q", path)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_UserFileOverridesDefaults(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	file := filepath.Join(opts.ConfigDirPath, "config.cue")
	testutil.MustWriteFile(t, file, `
container_engine: "podman"
max_parallel: 4
ui: verbose: false
`)

	cfg, path, err := loadWithOptions(t.Context(), opts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if path != file {
		t.Errorf("path = %q, want %q", path, file)
	}
	if cfg.ContainerEngine != ContainerEnginePodman || cfg.MaxParallel != 4 || cfg.UI.Verbose {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto || cfg.Container.BuildRetries != 3 || cfg.Taskfile != "tasks.yaml" {
		t.Errorf("unset values lost their defaults: %+v", cfg)
	}
}

func TestLoad_ProjectFileUsedWhenNoUserFile(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	testutil.MustWriteFile(t, filepath.Join(opts.BaseDir, ".mk.cue"), `taskfile: "build/tasks.toml"`)

	cfg, _, err := loadWithOptions(t.Context(), opts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Taskfile != "build/tasks.toml" {
		t.Errorf("Taskfile = %q", cfg.Taskfile)
	}

	// The user file wins over the project file.
	testutil.MustWriteFile(t, filepath.Join(opts.ConfigDirPath, "config.cue"), `taskfile: "user.yaml"`)
	cfg, _, err = loadWithOptions(t.Context(), opts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Taskfile != "user.yaml" {
		t.Errorf("Taskfile = %q, want user.yaml", cfg.Taskfile)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	opts.ConfigFilePath = filepath.Join(t.TempDir(), "ci.cue")
	testutil.MustWriteFile(t, opts.ConfigFilePath, `container: build_retries: 5`)

	cfg, path, err := loadWithOptions(t.Context(), opts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if path != opts.ConfigFilePath || cfg.Container.BuildRetries != 5 {
		t.Errorf("explicit file not used: %q %+v", path, cfg)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	opts.ConfigFilePath = filepath.Join(t.TempDir(), "missing.cue")

	_, _, err := loadWithOptions(t.Context(), opts)
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("expected ActionableError, got %v", err)
	}
	if ae.Resource != opts.ConfigFilePath || !strings.Contains(err.Error(), "settings file not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown engine", `container_engine: "lxc"`, "container_engine"},
		{"negative parallelism", `max_parallel: -1`, "max_parallel"},
		{"unknown field", `default_runtime: "native"`, "default_runtime"},
		{"wrong type", `ui: verbose: "yes"`, "verbose"},
		{"syntax error", `ui: {`, "config.cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := isolated(t)
			testutil.MustWriteFile(t, filepath.Join(opts.ConfigDirPath, "config.cue"), tt.content)

			_, _, err := loadWithOptions(t.Context(), opts)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %q: %v", tt.want, err)
			}
		})
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	opts := isolated(t)
	testutil.MustWriteFile(t, filepath.Join(opts.ConfigDirPath, "config.cue"), `container_engine: "docker"`)
	t.Setenv("MK_CONTAINER_ENGINE", "podman")
	t.Setenv("MK_MAX_PARALLEL", "2")
	t.Setenv("MK_UI_VERBOSE", "false")

	cfg, _, err := loadWithOptions(t.Context(), opts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ContainerEngine != ContainerEnginePodman || cfg.MaxParallel != 2 || cfg.UI.Verbose {
		t.Errorf("environment overrides not applied: %+v", cfg)
	}
}

func TestLoad_InvalidEnvironmentOverride(t *testing.T) {
	opts := isolated(t)
	t.Setenv("MK_CONTAINER_ENGINE", "lxc")

	_, _, err := loadWithOptions(t.Context(), opts)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), `"lxc"`) {
		t.Errorf("error should name the bad value: %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, _, err := loadWithOptions(ctx, isolated(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	path, err := CreateDefaultConfig(opts)
	if err != nil {
		t.Fatalf("CreateDefaultConfig: %v", err)
	}
	if path != filepath.Join(opts.ConfigDirPath, "config.cue") {
		t.Errorf("path = %q", path)
	}

	// The generated file must load back to the defaults.
	cfg, loaded, err := loadWithOptions(t.Context(), opts)
	if err != nil {
		t.Fatalf("load generated file: %v", err)
	}
	if loaded != path || *cfg != *DefaultConfig() {
		t.Errorf("round trip mismatch: %q %+v", loaded, cfg)
	}

	// An existing file is left alone.
	testutil.MustWriteFile(t, path, `max_parallel: 9`)
	if _, err := CreateDefaultConfig(opts); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != `max_parallel: 9` {
		t.Errorf("existing file was overwritten: %q", data)
	}
}

func TestFilePath(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	if p, err := FilePath(opts); err != nil || p != "" {
		t.Errorf("FilePath = %q, %v; want none", p, err)
	}
	def, err := DefaultFilePath(opts)
	if err != nil || def != filepath.Join(opts.ConfigDirPath, "config.cue") {
		t.Errorf("DefaultFilePath = %q, %v", def, err)
	}
}

func TestProvider_Load(t *testing.T) {
	t.Parallel()

	cfg, err := NewProvider().Load(t.Context(), isolated(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ContainerEngine != ContainerEngineDocker {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honored on Linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error: %v", err)
	}
	if want := filepath.Join(dir, AppName); got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}
