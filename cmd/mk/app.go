// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mkrun/mk/internal/config"
	"github.com/mkrun/mk/internal/container"
	"github.com/mkrun/mk/internal/engine"
	"github.com/mkrun/mk/internal/runtime"
	"github.com/mkrun/mk/pkg/taskfile"
)

const (
	// taskfileEnvVar names the task file when -c is not given.
	taskfileEnvVar = "MK_CONFIG"

	buildRetryBackoff = 2 * time.Second
)

type (
	// Dependencies holds the injectable collaborators of the CLI. Nil fields
	// get production defaults.
	Dependencies struct {
		Config config.Provider
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// App is the composition root shared by every command.
	App struct {
		Config config.Provider

		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
		flags  globalFlags
	}

	globalFlags struct {
		taskfile    string
		settings    string
		engine      string
		verbose     bool
		maxParallel int
	}

	// session is the loaded state one command works on.
	session struct {
		settings *config.Config
		file     *taskfile.TaskFile
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config: deps.Config,
		stdin:  deps.Stdin,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// setupLogging installs the process-wide slog handler. Packages log through
// slog; the CLI renders it with charm's logger.
func (a *App) setupLogging() {
	logger := log.NewWithOptions(a.stderr, log.Options{
		Prefix:          "mk",
		ReportTimestamp: a.flags.verbose,
	})
	if a.flags.verbose {
		logger.SetLevel(log.DebugLevel)
	}
	slog.SetDefault(slog.New(logger))
}

// loadSettings reads the settings file and applies flag overrides.
func (a *App) loadSettings(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: a.flags.settings,
		BaseDir:        cwd,
	})
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("engine") {
		cfg.ContainerEngine = config.ContainerEngine(a.flags.engine)
	}
	if flags.Changed("max-parallel") {
		cfg.MaxParallel = a.flags.maxParallel
	}
	if ok, errs := cfg.IsValid(); !ok {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// taskfilePath picks the task file: the -c flag, then MK_CONFIG, then the
// settings default.
func (a *App) taskfilePath(cmd *cobra.Command, cfg *config.Config) string {
	if cmd.Flags().Changed("config") {
		return a.flags.taskfile
	}
	if p := os.Getenv(taskfileEnvVar); p != "" {
		return p
	}
	return cfg.Taskfile
}

// loadSession loads settings and the task file. A returned error has
// already been reported to stderr.
func (a *App) loadSession(cmd *cobra.Command) (*session, error) {
	cfg, err := a.loadSettings(cmd.Context(), cmd)
	if err != nil {
		return nil, a.report(err, config.ColorSchemeAuto)
	}

	path := a.taskfilePath(cmd, cfg)
	slog.Debug("loading task file", "path", path)
	file, err := taskfile.Load(path)
	if err != nil {
		return nil, a.report(err, cfg.UI.ColorScheme)
	}
	for _, w := range file.Warnings {
		slog.Warn(w)
	}

	return &session{settings: cfg, file: file}, nil
}

// newEngine builds the execution engine for s.
func (a *App) newEngine(s *session) (*engine.Engine, error) {
	engineType, err := container.ParseEngineType(string(s.settings.ContainerEngine))
	if err != nil {
		return nil, err
	}

	return engine.New(s.file,
		engine.WithShell(runtime.Shell{Program: s.settings.DefaultShell}),
		engine.WithVerbose(s.settings.UI.Verbose || a.flags.verbose),
		engine.WithMaxParallel(s.settings.MaxParallel),
		engine.WithStreams(a.stdin, a.stdout, a.stderr),
		engine.WithContainerEngine(engineType,
			container.WithBuildRetries(s.settings.Container.BuildRetries, buildRetryBackoff)),
	), nil
}
