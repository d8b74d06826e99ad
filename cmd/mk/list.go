// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/mkrun/mk/pkg/taskfile"
)

type listOptions struct {
	plain  bool
	asJSON bool
}

// newListCommand creates the `mk list` command.
func newListCommand(app *App) *cobra.Command {
	var opts listOptions

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the tasks of the task file",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.listTasks(cmd, opts)
		},
	}
	listCmd.Flags().BoolVar(&opts.plain, "plain", false, "print one task per line without headers")
	listCmd.Flags().BoolVar(&opts.asJSON, "json", false, "print tasks as JSON")
	listCmd.MarkFlagsMutuallyExclusive("plain", "json")

	return listCmd
}

func (a *App) listTasks(cmd *cobra.Command, opts listOptions) error {
	s, err := a.loadSession(cmd)
	if err != nil {
		return err
	}

	switch {
	case opts.asJSON:
		doc, err := tasksJSON(s.file)
		if err != nil {
			return err
		}
		fmt.Fprint(a.stdout, doc)
	case opts.plain:
		writePlain(a.stdout, s.file)
	default:
		fmt.Fprintln(a.stdout, titleStyle.Render("Tasks")+" "+subtleStyle.Render("("+s.file.Path+")"))
		fmt.Fprintln(a.stdout, tasksTable(s.file).Render())
	}
	return nil
}

func writePlain(w io.Writer, f *taskfile.TaskFile) {
	for _, t := range f.Tasks() {
		if t.Description == "" {
			fmt.Fprintln(w, t.Name)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", t.Name, t.Description)
	}
}

func tasksTable(f *taskfile.TaskFile) *table.Table {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
		Headers("TASK", "DESCRIPTION", "DEPENDS ON", "COMMANDS").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 0:
				return tableCellStyle.Foreground(colorAccent)
			default:
				return tableCellStyle
			}
		})

	for _, task := range f.Tasks() {
		t.Row(task.Name, task.Description, strings.Join(task.DependsOn, ", "), commandKinds(task))
	}
	return t
}

// commandKinds summarizes a task's commands, e.g. "local_run x2, task_run".
func commandKinds(t *taskfile.Task) string {
	var (
		parts []string
		last  taskfile.CommandKind
		count int
	)
	flush := func() {
		switch {
		case count == 1:
			parts = append(parts, last.String())
		case count > 1:
			parts = append(parts, fmt.Sprintf("%s x%d", last, count))
		}
	}
	for _, c := range t.Commands {
		if c.Kind() == last {
			count++
			continue
		}
		flush()
		last, count = c.Kind(), 1
	}
	flush()
	return strings.Join(parts, ", ")
}

// tasksJSON renders the task list as an indented JSON document.
func tasksJSON(f *taskfile.TaskFile) (string, error) {
	doc, err := sjson.Set(`{"tasks":[]}`, "file", f.Path)
	if err != nil {
		return "", err
	}

	for _, t := range f.Tasks() {
		obj := "{}"
		fields := []struct {
			path  string
			value any
		}{
			{"name", t.Name},
			{"description", t.Description},
			{"depends_on", nonNil(t.DependsOn)},
			{"task_runs", nonNil(t.TaskRuns())},
			{"commands", len(t.Commands)},
			{"parallel", t.Parallel},
		}
		for _, field := range fields {
			if obj, err = sjson.Set(obj, field.path, field.value); err != nil {
				return "", fmt.Errorf("encode task %q: %w", t.Name, err)
			}
		}
		if len(t.Labels) > 0 {
			if obj, err = sjson.Set(obj, "labels", t.Labels); err != nil {
				return "", fmt.Errorf("encode task %q: %w", t.Name, err)
			}
		}
		if doc, err = sjson.SetRaw(doc, "tasks.-1", obj); err != nil {
			return "", err
		}
	}

	return gjson.Get(doc, "@pretty").String(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
