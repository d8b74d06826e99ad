// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mkrun/mk/internal/issue"
	"github.com/mkrun/mk/pkg/cueutil"
)

const (
	// AppName names the settings directory.
	AppName = "mk"
	// ConfigFileName and ConfigFileExt form the user settings file name.
	ConfigFileName = "config"
	ConfigFileExt  = "cue"
	// LocalConfigFileName is a per-project settings file looked up in the
	// base directory when the user config directory has none.
	LocalConfigFileName = ".mk.cue"
	// EnvPrefix prefixes environment overrides, e.g. MK_CONTAINER_ENGINE or
	// MK_UI_VERBOSE.
	EnvPrefix = "MK"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir is the per-user settings directory: $XDG_CONFIG_HOME/mk (or
// ~/.config/mk) on Linux, ~/Library/Application Support/mk on macOS and
// %APPDATA%\mk on Windows.
//
//nolint:revive // config.Dir reads as a directory of configs
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// FilePath returns the settings file Load would read, or "" when none
// exists and defaults apply.
func FilePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	if p := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(p) {
		return p, nil
	}
	if p := filepath.Join(opts.BaseDir, LocalConfigFileName); fileExists(p) {
		return p, nil
	}
	return "", nil
}

// DefaultFilePath returns where `mk config init` writes the settings file.
func DefaultFilePath(opts LoadOptions) (string, error) {
	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions builds a fresh Viper instance per call. Precedence, lowest
// first: defaults, the settings file, MK_* environment variables. It also
// returns the settings file used, "" for none.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load settings: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" && !fileExists(opts.ConfigFilePath) {
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(opts.ConfigFilePath).
			WithSuggestions(
				"Check the path given to --settings",
				"Run 'mk config init' to write a default settings file",
			).
			Wrap(fmt.Errorf("settings file not found: %s", opts.ConfigFilePath)).
			BuildError()
	}

	resolvedPath, err := FilePath(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'mk config show' to see the effective settings").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("decode settings: %w", err)
	}

	// Environment overrides bypass the CUE schema, so validate the result.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check MK_* environment variables for typos").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("container_engine", string(d.ContainerEngine))
	v.SetDefault("default_shell", d.DefaultShell)
	v.SetDefault("max_parallel", d.MaxParallel)
	v.SetDefault("taskfile", d.Taskfile)
	v.SetDefault("ui.color_scheme", string(d.UI.ColorScheme))
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("container.build_retries", d.Container.BuildRetries)
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// The file is decoded to map[string]any rather than a struct so that Viper
// keeps its defaults for fields the file leaves unset.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings file: %w", err)
	}

	value, err := cueutil.Compile(data, cueutil.WithFilename(path))
	if err != nil {
		return err
	}
	if err := cueutil.ValidateValue(configSchema, "#Config", value,
		cueutil.WithConcrete(false), cueutil.WithFilename(path)); err != nil {
		return err
	}

	var configMap map[string]any
	if err := value.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("merge settings: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// CreateDefaultConfig writes a default settings file unless one exists and
// returns its path.
func CreateDefaultConfig(opts LoadOptions) (string, error) {
	cfgPath, err := DefaultFilePath(opts)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if fileExists(cfgPath) {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE renders cfg as a settings file that Load accepts.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// mk settings file\n\n")

	fmt.Fprintf(&sb, "container_engine: %q\n", cfg.ContainerEngine)
	fmt.Fprintf(&sb, "default_shell:    %q\n", cfg.DefaultShell)
	fmt.Fprintf(&sb, "max_parallel:     %d\n", cfg.MaxParallel)
	fmt.Fprintf(&sb, "taskfile:         %q\n", cfg.Taskfile)

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose:      %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	sb.WriteString("\ncontainer: {\n")
	fmt.Fprintf(&sb, "\tbuild_retries: %d\n", cfg.Container.BuildRetries)
	sb.WriteString("}\n")

	return sb.String()
}
