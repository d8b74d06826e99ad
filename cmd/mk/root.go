// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for mk.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the mk command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mk [task...]",
		Short: "A task runner for project task files",
		Long: titleStyle.Render("mk") + subtleStyle.Render(" - a task runner for project task files") + `

mk runs the tasks declared in a task file (YAML, JSON, TOML, CUE or Lua),
together with everything they depend on. Commands run in a host shell, in
the embedded mk-sh interpreter or in Docker/Podman containers.

` + subtleStyle.Render("Examples:") + `
  mk                      List the tasks of tasks.yaml
  mk build test           Run 'build' and 'test' with their dependencies
  mk -c ci.toml lint      Run 'lint' from another task file
  mk config show          Show the effective settings`,
		Args:              cobra.ArbitraryArgs,
		ValidArgsFunction: app.completeTasks,
		SilenceUsage:      true,
		PersistentPreRun: func(*cobra.Command, []string) {
			app.setupLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return app.listTasks(cmd, listOptions{})
			}
			return app.runTasks(cmd, args)
		},
	}
	rootCmd.SetIn(app.stdin)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&app.flags.taskfile, "config", "c", "", "task file to use (env "+taskfileEnvVar+", default from settings: tasks.yaml)")
	pf.StringVar(&app.flags.settings, "settings", "", "settings file (default is the user config dir, then ./.mk.cue)")
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "show command output and debug logs")
	pf.IntVar(&app.flags.maxParallel, "max-parallel", 0, "limit concurrent commands of parallel tasks (0 = no limit)")
	pf.StringVar(&app.flags.engine, "engine", "", "preferred container engine (docker|podman)")

	rootCmd.AddCommand(
		newRunCommand(app),
		newListCommand(app),
		newConfigCommand(app),
		newCompletionCommand(),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// handleError skips failures the commands already reported.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}
