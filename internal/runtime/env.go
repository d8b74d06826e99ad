// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"
)

// shellValuePattern matches a variable value that is a command substitution.
var shellValuePattern = regexp.MustCompile(`^\$\((.+)\)$`)

type (
	// Scope is one level of declared environment: inline variables plus
	// dotenv files resolved against Dir.
	Scope struct {
		Vars  map[string]string
		Files []string
		Dir   string
	}

	// Environment is the resolved environment for one task. It keeps the
	// declared layers apart from the inherited host environment so container
	// commands can receive only what the task file declares.
	Environment struct {
		merged   map[string]string
		declared map[string]string
	}

	// Resolver merges environment scopes. It never mutates its inputs or
	// the process environment.
	Resolver struct {
		readFile func(string) ([]byte, error)
	}
)

// NewResolver creates a Resolver reading env files from disk.
func NewResolver() *Resolver {
	return &Resolver{readFile: os.ReadFile}
}

// Resolve merges, later winning: host < global vars < global env files (in
// order) < task vars < task env files (in order).
func (r *Resolver) Resolve(host map[string]string, global, task Scope) (*Environment, error) {
	declared := make(map[string]string)

	maps.Copy(declared, global.Vars)
	for _, f := range global.Files {
		if err := r.loadEnvFile(declared, f, global.Dir); err != nil {
			return nil, err
		}
	}
	maps.Copy(declared, task.Vars)
	for _, f := range task.Files {
		if err := r.loadEnvFile(declared, f, task.Dir); err != nil {
			return nil, err
		}
	}

	merged := make(map[string]string, len(host)+len(declared))
	maps.Copy(merged, host)
	maps.Copy(merged, declared)
	return &Environment{merged: merged, declared: declared}, nil
}

// ShellValue returns the command of a $(cmd) value.
func ShellValue(value string) (string, bool) {
	m := shellValuePattern.FindStringSubmatch(value)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// HasShellValues reports whether any value of vars is a $(cmd) value.
func HasShellValues(vars map[string]string) bool {
	for _, v := range vars {
		if _, ok := ShellValue(v); ok {
			return true
		}
	}
	return false
}

// EvalVars returns a copy of vars with every $(cmd) value replaced by the
// trimmed standard output of cmd. base supplies shell, directory, environment
// and stderr. Keys are evaluated in name order and the first failure stops.
func EvalVars(ctx context.Context, ex Executor, base Invocation, vars map[string]string) (map[string]string, error) {
	out := maps.Clone(vars)
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		script, ok := ShellValue(vars[k])
		if !ok {
			continue
		}
		inv := base
		inv.Script = script
		res := Capture(ctx, ex, inv)
		if !res.Success() {
			return nil, fmt.Errorf("environment %s: evaluate %s: %w", k, vars[k], res.Err())
		}
		out[k] = res.Output
	}
	return out, nil
}

// NewEnvironment builds an Environment directly from layers; used by tests
// and callers that resolved variables elsewhere.
func NewEnvironment(host, declared map[string]string) *Environment {
	merged := maps.Clone(host)
	if merged == nil {
		merged = make(map[string]string, len(declared))
	}
	maps.Copy(merged, declared)
	d := maps.Clone(declared)
	if d == nil {
		d = map[string]string{}
	}
	return &Environment{merged: merged, declared: d}
}

// Get returns a variable from the merged environment.
func (e *Environment) Get(key string) (string, bool) {
	v, ok := e.merged[key]
	return v, ok
}

// Merged returns a copy of host plus declared variables.
func (e *Environment) Merged() map[string]string {
	return maps.Clone(e.merged)
}

// Declared returns a copy of the variables declared by the task file.
func (e *Environment) Declared() map[string]string {
	return maps.Clone(e.declared)
}

// Slice returns the merged environment as sorted KEY=VALUE pairs.
func (e *Environment) Slice() []string {
	return EnvToSlice(e.merged)
}

// HostEnv returns the current process environment as a map.
func HostEnv() map[string]string {
	return SliceToEnv(os.Environ())
}

// EnvToSlice converts a map to sorted KEY=VALUE pairs.
func EnvToSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}

// SliceToEnv converts KEY=VALUE pairs to a map. Entries without '=' are
// skipped; on Windows, variables such as "=C:" keep their leading '='.
func SliceToEnv(entries []string) map[string]string {
	env := make(map[string]string, len(entries))
	for _, entry := range entries {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if k == "" {
			rest, val, ok := strings.Cut(entry[1:], "=")
			if !ok {
				continue
			}
			k, v = "="+rest, val
		}
		env[k] = v
	}
	return env
}
