// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkrun/mk/internal/config"
	"github.com/mkrun/mk/internal/issue"
)

// newConfigCommand creates the `mk config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mk settings",
		Long: `Manage mk settings.

Settings are read from the first file found of:
  - the --settings flag
  - Linux: ~/.config/mk/config.cue
    macOS: ~/Library/Application Support/mk/config.cue
    Windows: %APPDATA%\mk\config.cue
  - .mk.cue in the current directory

MK_* environment variables override file values, flags override both.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective settings as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.showConfig(cmd)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a default settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.initConfig()
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the settings file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.showConfigPath()
		},
	})

	return cfgCmd
}

func (a *App) loadOptions() (config.LoadOptions, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.LoadOptions{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	return config.LoadOptions{ConfigFilePath: a.flags.settings, BaseDir: cwd}, nil
}

func (a *App) showConfig(cmd *cobra.Command) error {
	cfg, err := a.loadSettings(cmd.Context(), cmd)
	if err != nil {
		fmt.Fprintf(a.stderr, "\n%s %s\n", errorStyle.Render("Error:"), formatErrorForDisplay(err, a.flags.verbose))
		if rendered, rerr := issue.Get(issue.ConfigLoadFailedId).Render(string(config.ColorSchemeAuto)); rerr == nil {
			fmt.Fprint(a.stderr, rendered)
		}
		return &ExitError{Code: 1}
	}

	opts, err := a.loadOptions()
	if err != nil {
		return err
	}
	path, err := config.FilePath(opts)
	if err != nil {
		return err
	}
	if path == "" {
		path = "(using defaults)"
	}

	fmt.Fprintf(a.stdout, "%s %s\n\n", pathStyle.Render("// settings file:"), subtleStyle.Render(path))
	fmt.Fprint(a.stdout, config.GenerateCUE(cfg))
	return nil
}

func (a *App) initConfig() error {
	opts, err := a.loadOptions()
	if err != nil {
		return err
	}
	target, err := config.DefaultFilePath(opts)
	if err != nil {
		return err
	}
	_, statErr := os.Stat(target)
	existed := statErr == nil
	if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
		return statErr
	}

	path, err := config.CreateDefaultConfig(opts)
	if err != nil {
		return err
	}
	if existed {
		fmt.Fprintf(a.stdout, "%s %s\n", warningStyle.Render("Settings file already exists:"), path)
		return nil
	}
	fmt.Fprintf(a.stdout, "%s %s\n", successStyle.Render("Created settings file:"), path)
	return nil
}

func (a *App) showConfigPath() error {
	opts, err := a.loadOptions()
	if err != nil {
		return err
	}
	path, err := config.FilePath(opts)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintln(a.stdout, path)
		return nil
	}

	path, err = config.DefaultFilePath(opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s %s\n", path, subtleStyle.Render("(not created)"))
	return nil
}
