// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkrun/mk/internal/config"
	"github.com/mkrun/mk/internal/engine"
	"github.com/mkrun/mk/internal/watch"
	"github.com/mkrun/mk/pkg/taskfile"
)

// watchOptions holds the --watch flags of `mk run`.
type watchOptions struct {
	enabled  bool
	patterns []string
	ignore   []string
	debounce time.Duration
}

// newRunCommand creates the `mk run` command. It is the explicit form of
// `mk <task...>` and reaches tasks whose names collide with subcommands.
func newRunCommand(app *App) *cobra.Command {
	var wopts watchOptions

	runCmd := &cobra.Command{
		Use:     "run <task...>",
		Aliases: []string{"r"},
		Short:   "Run tasks and their dependencies",
		Example: `  mk run build test
  mk run test --watch --watch-pattern '**/*.go'`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: app.completeTasks,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wopts.enabled {
				return app.watchTasks(cmd, args, wopts)
			}
			return app.runTasks(cmd, args)
		},
	}

	f := runCmd.Flags()
	f.BoolVarP(&wopts.enabled, "watch", "w", false, "re-run the tasks whenever files below the working directory change")
	f.StringSliceVar(&wopts.patterns, "watch-pattern", nil, "glob selecting files that trigger a re-run (repeatable)")
	f.StringSliceVar(&wopts.ignore, "watch-ignore", nil, "glob excluded from watching (repeatable)")
	f.DurationVar(&wopts.debounce, "watch-debounce", watch.DefaultDebounce, "quiet period before a re-run")

	return runCmd
}

// watchTasks runs names once, then again after every batch of file changes
// until interrupted. Failed runs are reported and do not stop watching.
func (a *App) watchTasks(cmd *cobra.Command, names []string, opts watchOptions) error {
	w, err := watch.New(watch.Options{
		Patterns: opts.patterns,
		Ignore:   opts.ignore,
		Debounce: opts.debounce,
	})
	if err != nil {
		return a.report(err, config.ColorSchemeAuto)
	}

	_ = a.runTasks(cmd, names)
	fmt.Fprintf(a.stderr, "%s %s\n", subtleStyle.Render("watching"), w.Dir())

	return w.Run(cmd.Context(), func(_ context.Context, changed []string) error {
		slog.Info("files changed", "files", strings.Join(changed, ", "))
		return a.runTasks(cmd, names)
	})
}

func (a *App) runTasks(cmd *cobra.Command, names []string) error {
	s, err := a.loadSession(cmd)
	if err != nil {
		return err
	}

	eng, err := a.newEngine(s)
	if err != nil {
		return a.report(err, s.settings.UI.ColorScheme)
	}

	slog.Debug("running tasks", "tasks", strings.Join(names, " "), "file", s.file.Path)
	res, err := eng.Run(cmd.Context(), names...)
	if res != nil {
		logSummary(cmd.Context(), slog.Default(), res)
	}
	if err != nil {
		return a.report(err, s.settings.UI.ColorScheme)
	}
	return nil
}

// logSummary reports how each task ended. It logs at info level when a
// failure was ignored so that shows without -v.
func logSummary(ctx context.Context, logger *slog.Logger, res *engine.RunResult) {
	tasks := res.Tasks()
	ignored := make([]int, len(tasks))
	level := slog.LevelDebug
	for i, t := range tasks {
		for _, c := range t.Commands {
			if c.Ignored {
				ignored[i]++
				level = slog.LevelInfo
			}
		}
	}
	for i, t := range tasks {
		logger.Log(ctx, level, "task finished", "task", t.Name, "status", t.Status.String(), "duration", t.Duration, "ignored", ignored[i])
	}
}

// completeTasks completes task names from the current task file. Load
// failures yield no completions.
func (a *App) completeTasks(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	cfg, err := a.loadSettings(cmd.Context(), cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	file, err := taskfile.Load(a.taskfilePath(cmd, cfg))
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	out := make([]string, 0, len(file.Tasks()))
	for _, t := range file.Tasks() {
		if t.Description != "" {
			out = append(out, t.Name+"\t"+t.Description)
		} else {
			out = append(out, t.Name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
