// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"strings"
	"testing"
)

func TestContainerEngine_Known(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value ContainerEngine
		want  bool
	}{
		{ContainerEngineDocker, true},
		{ContainerEnginePodman, true},
		{"", false},
		{"Docker", false},
		{"containerd", false},
	}
	for _, tt := range tests {
		if got := tt.value.Known(); got != tt.want {
			t.Errorf("ContainerEngine(%q).Known() = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestColorScheme_Known(t *testing.T) {
	t.Parallel()

	for _, cs := range []ColorScheme{ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight} {
		if !cs.Known() {
			t.Errorf("%q should be known", cs)
		}
	}
	if ColorScheme("solarized").Known() {
		t.Error("solarized should not be known")
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	t.Parallel()

	if valid, errs := DefaultConfig().IsValid(); !valid {
		t.Errorf("default config rejected: %v", errs)
	}
}

func TestConfig_IsValid_CollectsAllFieldErrors(t *testing.T) {
	t.Parallel()

	cfg := Config{
		ContainerEngine: "lxc",
		DefaultShell:    " ",
		MaxParallel:     -2,
		Taskfile:        "tasks.yaml",
		UI:              UIConfig{ColorScheme: "neon"},
		Container:       ContainerConfig{BuildRetries: 0},
	}

	valid, errs := cfg.IsValid()
	if valid || len(errs) != 1 {
		t.Fatalf("expected one InvalidConfigError, got %v", errs)
	}
	var cfgErr *InvalidConfigError
	if !errors.As(errs[0], &cfgErr) {
		t.Fatalf("expected *InvalidConfigError, got %T", errs[0])
	}

	var keys []string
	for _, fe := range cfgErr.FieldErrors {
		var se *SettingError
		if !errors.As(fe, &se) {
			t.Fatalf("field error %T is not a *SettingError", fe)
		}
		keys = append(keys, se.Key)
	}
	want := "container_engine,default_shell,max_parallel,ui.color_scheme,container.build_retries"
	if got := strings.Join(keys, ","); got != want {
		t.Errorf("keys = %s, want %s", got, want)
	}

	if !errors.Is(errs[0], ErrInvalidConfig) || !errors.Is(errs[0], ErrInvalidSetting) {
		t.Errorf("error should match both sentinels: %v", errs[0])
	}
	if msg := errs[0].Error(); !strings.Contains(msg, `max_parallel "-2" must not be negative`) {
		t.Errorf("message lacks field detail: %s", msg)
	}
}
