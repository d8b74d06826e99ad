// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ContainerEnginePodman uses Podman as the container runtime.
	ContainerEnginePodman ContainerEngine = "podman"
	// ContainerEngineDocker uses Docker as the container runtime.
	ContainerEngineDocker ContainerEngine = "docker"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultTaskfile is the task file looked up when none is given.
	DefaultTaskfile = "tasks.yaml"
	// DefaultShell runs commands that name no shell.
	DefaultShell = "sh"
	// DefaultBuildRetries is the number of attempts a container build gets.
	DefaultBuildRetries = 3
)

var (
	// ErrInvalidSetting is wrapped by every SettingError.
	ErrInvalidSetting = errors.New("invalid setting")
	// ErrInvalidConfig is wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ContainerEngine names the preferred container runtime.
	ContainerEngine string

	// ColorScheme is the terminal color preference used for rendered help.
	ColorScheme string

	// SettingError reports one setting whose value is out of range.
	SettingError struct {
		Key    string
		Value  any
		Reason string
	}

	// InvalidConfigError lists every SettingError found in a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application settings.
	Config struct {
		// ContainerEngine is the preferred engine; the other one is the fallback.
		ContainerEngine ContainerEngine `json:"container_engine" mapstructure:"container_engine"`
		// DefaultShell runs commands when neither the command nor its task
		// names a shell.
		DefaultShell string `json:"default_shell" mapstructure:"default_shell"`
		// MaxParallel caps concurrent commands in a parallel task; 0 means no cap.
		MaxParallel int `json:"max_parallel" mapstructure:"max_parallel"`
		// Taskfile is the task file used when -c is not given.
		Taskfile  string          `json:"taskfile" mapstructure:"taskfile"`
		UI        UIConfig        `json:"ui" mapstructure:"ui"`
		Container ContainerConfig `json:"container" mapstructure:"container"`
	}

	// UIConfig holds presentation settings.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose shows command output unless a task or command says otherwise.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// ContainerConfig holds container engine settings.
	ContainerConfig struct {
		// BuildRetries is the number of attempts a transiently failing
		// image build gets.
		BuildRetries int `json:"build_retries" mapstructure:"build_retries"`
	}

	// check is one validation rule applied by Config.IsValid.
	check struct {
		key    string
		value  any
		ok     bool
		reason string
	}
)

func (ce ContainerEngine) String() string { return string(ce) }

// Known reports whether ce is docker or podman.
func (ce ContainerEngine) Known() bool {
	return ce == ContainerEngineDocker || ce == ContainerEnginePodman
}

func (cs ColorScheme) String() string { return string(cs) }

// Known reports whether cs is auto, dark or light.
func (cs ColorScheme) Known() bool {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true
	}
	return false
}

func (e *SettingError) Error() string {
	return fmt.Sprintf("%s %q %s", e.Key, fmt.Sprint(e.Value), e.Reason)
}

func (e *SettingError) Unwrap() error { return ErrInvalidSetting }

// Error lists each field error on one line.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, fe := range e.FieldErrors {
		msgs[i] = fe.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap exposes ErrInvalidConfig and the field errors to errors.Is.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// IsValid checks every setting and collects all violations into a single
// InvalidConfigError.
func (c Config) IsValid() (bool, []error) {
	checks := []check{
		{"container_engine", c.ContainerEngine, c.ContainerEngine.Known(), "is not one of docker, podman"},
		{"default_shell", c.DefaultShell, strings.TrimSpace(c.DefaultShell) != "", "must not be empty"},
		{"max_parallel", c.MaxParallel, c.MaxParallel >= 0, "must not be negative"},
		{"taskfile", c.Taskfile, strings.TrimSpace(c.Taskfile) != "", "must not be empty"},
		{"ui.color_scheme", c.UI.ColorScheme, c.UI.ColorScheme.Known(), "is not one of auto, dark, light"},
		{"container.build_retries", c.Container.BuildRetries, c.Container.BuildRetries >= 1, "must be at least 1"},
	}

	var errs []error
	for _, ch := range checks {
		if !ch.ok {
			errs = append(errs, &SettingError{Key: ch.key, Value: ch.value, Reason: ch.reason})
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ContainerEngine: ContainerEngineDocker,
		DefaultShell:    DefaultShell,
		MaxParallel:     0,
		Taskfile:        DefaultTaskfile,
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     true,
		},
		Container: ContainerConfig{
			BuildRetries: DefaultBuildRetries,
		},
	}
}
