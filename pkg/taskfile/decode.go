// SPDX-License-Identifier: MPL-2.0

package taskfile

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ErrInvalidCommand is the sentinel wrapped by CommandShapeError.
var ErrInvalidCommand = errors.New("invalid command")

// discriminators are the keys that select a Command variant, in the order
// they are reported.
var discriminators = []string{"command", "container_command", "container_build", "task"}

type (
	// CommandShapeError reports a command entry that names none, or more than
	// one, of the variant keys.
	CommandShapeError struct {
		Task  string
		Index int
		Keys  []string
	}

	rawFile struct {
		Tasks       map[string]any    `mapstructure:"tasks"`
		Environment map[string]string `mapstructure:"environment"`
		EnvFiles    []string          `mapstructure:"env_file"`
		Include     []Include         `mapstructure:"include"`
		UseNpm      any               `mapstructure:"use_npm"`
		UseCargo    any               `mapstructure:"use_cargo"`
	}

	rawTask struct {
		Commands      []any             `mapstructure:"commands"`
		Preconditions []Precondition    `mapstructure:"preconditions"`
		DependsOn     []any             `mapstructure:"depends_on"`
		Labels        map[string]string `mapstructure:"labels"`
		Description   string            `mapstructure:"description"`
		Environment   map[string]string `mapstructure:"environment"`
		EnvFiles      []string          `mapstructure:"env_file"`
		Shell         *Shell            `mapstructure:"shell"`
		Parallel      bool              `mapstructure:"parallel"`
		IgnoreErrors  *bool             `mapstructure:"ignore_errors"`
		Verbose       *bool             `mapstructure:"verbose"`
	}

	rawContainerBuild struct {
		Build struct {
			ImageName     string   `mapstructure:"image_name"`
			Context       string   `mapstructure:"context"`
			Containerfile string   `mapstructure:"containerfile"`
			Tags          []string `mapstructure:"tags"`
			BuildArgs     []string `mapstructure:"build_args"`
			Labels        []string `mapstructure:"labels"`
			SBOM          bool     `mapstructure:"sbom"`
			NoCache       bool     `mapstructure:"no_cache"`
			ForceRM       bool     `mapstructure:"force_rm"`
		} `mapstructure:"container_build"`
		Verbose *bool `mapstructure:"verbose"`
	}

	rawDependency struct {
		Name string `mapstructure:"name"`
	}
)

// Error implements the error interface.
func (e *CommandShapeError) Error() string {
	if len(e.Keys) == 0 {
		return fmt.Sprintf("task %q command %d: expected one of %s", e.Task, e.Index, strings.Join(discriminators, ", "))
	}
	return fmt.Sprintf("task %q command %d: keys %s are mutually exclusive", e.Task, e.Index, strings.Join(e.Keys, ", "))
}

// Unwrap returns ErrInvalidCommand for errors.Is() compatibility.
func (e *CommandShapeError) Unwrap() error { return ErrInvalidCommand }

// decodeFile converts a validated generic document into a TaskFile. order
// lists task names in declaration order when the format preserves it; names
// missing from order follow in lexical order.
func decodeFile(doc map[string]any, order []string, path string) (*TaskFile, error) {
	var raw rawFile
	if err := decodeInto(doc, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	f := New(path, filepath.Dir(path))
	f.Environment = raw.Environment
	f.EnvFiles = raw.EnvFiles
	f.Includes = raw.Include
	if raw.UseNpm != nil {
		f.Warnings = append(f.Warnings, fmt.Sprintf("%s: use_npm is not supported and was ignored", path))
	}
	if raw.UseCargo != nil {
		f.Warnings = append(f.Warnings, fmt.Sprintf("%s: use_cargo is not supported and was ignored", path))
	}

	for _, name := range orderedNames(raw.Tasks, order) {
		t, err := decodeTask(name, raw.Tasks[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		t.Dir = f.Dir
		f.Add(t, false)
	}
	return f, nil
}

func decodeTask(name string, v any) (*Task, error) {
	if s, ok := v.(string); ok {
		return &Task{Name: name, Commands: []Command{&CommandRun{Raw: s}}}, nil
	}

	var raw rawTask
	if err := decodeInto(v, &raw); err != nil {
		return nil, fmt.Errorf("task %q: %w", name, err)
	}

	t := &Task{
		Name:          name,
		Preconditions: raw.Preconditions,
		Labels:        raw.Labels,
		Description:   raw.Description,
		Environment:   raw.Environment,
		EnvFiles:      raw.EnvFiles,
		Shell:         raw.Shell,
		Parallel:      raw.Parallel,
		IgnoreErrors:  raw.IgnoreErrors,
		Verbose:       raw.Verbose,
	}

	for i, c := range raw.Commands {
		cmd, err := decodeCommand(name, i, c)
		if err != nil {
			return nil, err
		}
		t.Commands = append(t.Commands, cmd)
	}

	for _, d := range raw.DependsOn {
		if s, ok := d.(string); ok {
			t.DependsOn = append(t.DependsOn, s)
			continue
		}
		var dep rawDependency
		if err := decodeInto(d, &dep); err != nil {
			return nil, fmt.Errorf("task %q depends_on: %w", name, err)
		}
		t.DependsOn = append(t.DependsOn, dep.Name)
	}
	return t, nil
}

func decodeCommand(task string, index int, v any) (Command, error) {
	m, ok := v.(map[string]any)
	if !ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("task %q command %d: unexpected %T", task, index, v)
		}
		return &CommandRun{Raw: s}, nil
	}

	var keys []string
	for _, k := range discriminators {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	if len(keys) != 1 {
		return nil, &CommandShapeError{Task: task, Index: index, Keys: keys}
	}

	var (
		cmd Command
		err error
	)
	switch keys[0] {
	case "command":
		lr := &LocalRun{}
		err = decodeInto(m, lr)
		cmd = lr
	case "container_command":
		cr := &ContainerRun{}
		err = decodeInto(m, cr)
		cmd = cr
	case "container_build":
		var raw rawContainerBuild
		err = decodeInto(m, &raw)
		b := raw.Build
		cmd = &ContainerBuild{
			ImageName:     b.ImageName,
			Context:       b.Context,
			Containerfile: b.Containerfile,
			Tags:          b.Tags,
			BuildArgs:     b.BuildArgs,
			Labels:        b.Labels,
			SBOM:          b.SBOM,
			NoCache:       b.NoCache,
			ForceRM:       b.ForceRM,
			Verbose:       raw.Verbose,
		}
	case "task":
		tr := &TaskRun{}
		err = decodeInto(m, tr)
		cmd = tr
	}
	if err != nil {
		return nil, fmt.Errorf("task %q command %d: %w", task, index, err)
	}
	return cmd, nil
}

// decodeInto decodes generic data into out, rejecting unknown keys.
func decodeInto(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.ComposeDecodeHookFunc(shorthandHook, scalarToStringHook),
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

var (
	shellType   = reflect.TypeOf(Shell{})
	includeType = reflect.TypeOf(Include{})
)

// shorthandHook expands the string forms of Shell and Include.
func shorthandHook(_, to reflect.Type, data any) (any, error) {
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	switch to {
	case shellType:
		return map[string]any{"command": s}, nil
	case includeType:
		return map[string]any{"name": s}, nil
	}
	return data, nil
}

// scalarToStringHook lets environment values be written as numbers or
// booleans.
func scalarToStringHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(data), nil
	}
	return data, nil
}

// orderedNames returns the keys of tasks following order, then any remaining
// keys sorted.
func orderedNames(tasks map[string]any, order []string) []string {
	names := make([]string, 0, len(tasks))
	seen := make(map[string]bool, len(tasks))
	for _, n := range order {
		if _, ok := tasks[n]; ok && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	var rest []string
	for n := range tasks {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	slices.Sort(rest)
	return append(names, rest...)
}
