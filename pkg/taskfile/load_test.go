// SPDX-License-Identifier: MPL-2.0

package taskfile

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

var equivalentFiles = map[string]string{
	"tasks.yaml": `
environment:
  GREETING: hi
tasks:
  build:
    commands:
      - echo build
      - command: echo local
        shell: bash
    depends_on:
      - deps
  deps: echo deps
`,
	"tasks.json": `{
  "environment": {"GREETING": "hi"},
  "tasks": {
    "build": {
      "commands": ["echo build", {"command": "echo local", "shell": "bash"}],
      "depends_on": ["deps"]
    },
    "deps": "echo deps"
  }
}`,
	"tasks.toml": `
[environment]
GREETING = "hi"

[tasks]
deps = "echo deps"

[tasks.build]
commands = ["echo build", { command = "echo local", shell = "bash" }]
depends_on = ["deps"]
`,
	"tasks.cue": `
environment: GREETING: "hi"
tasks: {
	build: {
		commands: ["echo build", {command: "echo local", shell: "bash"}]
		depends_on: ["deps"]
	}
	deps: "echo deps"
}
`,
	"tasks.lua": `
return {
  environment = { GREETING = "hi" },
  tasks = {
    build = {
      commands = { "echo build", { command = "echo local", shell = "bash" } },
      depends_on = { "deps" },
    },
    deps = "echo deps",
  },
}
`,
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_FormatsAreEquivalent(t *testing.T) {
	t.Parallel()

	for name, content := range equivalentFiles {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			f, err := Load(writeFile(t, dir, name, content))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			names := f.Names()
			slices.Sort(names)
			if !slices.Equal(names, []string{"build", "deps"}) {
				t.Fatalf("unexpected tasks %v", names)
			}
			if f.Environment["GREETING"] != "hi" {
				t.Errorf("GREETING = %q", f.Environment["GREETING"])
			}

			build, err := f.Task("build")
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(build.DependsOn, []string{"deps"}) {
				t.Errorf("DependsOn = %v", build.DependsOn)
			}
			if len(build.Commands) != 2 {
				t.Fatalf("expected 2 commands, got %d", len(build.Commands))
			}
			if cr, ok := build.Commands[0].(*CommandRun); !ok || cr.Raw != "echo build" {
				t.Errorf("command 0 = %#v", build.Commands[0])
			}
			lr, ok := build.Commands[1].(*LocalRun)
			if !ok {
				t.Fatalf("command 1 = %#v", build.Commands[1])
			}
			if lr.Command != "echo local" || lr.Shell.Program() != "bash" {
				t.Errorf("unexpected local run %+v", lr)
			}
			if build.Dir != dir {
				t.Errorf("Dir = %q, want %q", build.Dir, dir)
			}

			deps, err := f.Task("deps")
			if err != nil {
				t.Fatal(err)
			}
			if cr, ok := deps.Commands[0].(*CommandRun); !ok || cr.Raw != "echo deps" {
				t.Errorf("deps command = %#v", deps.Commands[0])
			}
		})
	}
}

func TestLoad_PreservesDeclarationOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		file    string
		content string
	}{
		{"tasks.yaml", "tasks:\n  zeta: echo z\n  alpha: echo a\n  mid: echo m\n"},
		{"tasks.json", `{"tasks": {"zeta": "echo z", "alpha": "echo a", "mid": "echo m"}}`},
		{"tasks.cue", "tasks: {\n\tzeta: \"echo z\"\n\talpha: \"echo a\"\n\tmid: \"echo m\"\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			t.Parallel()

			f, err := Load(writeFile(t, t.TempDir(), tt.file, tt.content))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := f.Names(); !slices.Equal(got, []string{"zeta", "alpha", "mid"}) {
				t.Errorf("Names() = %v", got)
			}
		})
	}
}

func TestLoad_TOMLOrdersByName(t *testing.T) {
	t.Parallel()

	f, err := Load(writeFile(t, t.TempDir(), "tasks.toml", "[tasks]\nzeta = \"echo z\"\nalpha = \"echo a\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := f.Names(); !slices.Equal(got, []string{"alpha", "zeta"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestLoad_YAMLMergeKeys(t *testing.T) {
	t.Parallel()

	content := `
tasks:
  lint:
    <<: {verbose: false, ignore_errors: true}
    commands:
      - golangci-lint run
`
	f, err := Load(writeFile(t, t.TempDir(), "tasks.yaml", content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	lint, _ := f.Task("lint")
	if lint.IgnoreErrors == nil || !*lint.IgnoreErrors {
		t.Errorf("merge key ignore_errors not applied: %+v", lint)
	}
	if lint.Verbose == nil || *lint.Verbose {
		t.Errorf("merge key verbose not applied: %+v", lint)
	}
}

func TestLoad_Includes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "sub/more.yaml", `
environment:
  SHARED: child
  CHILD_ONLY: "1"
env_file:
  - child.env?
tasks:
  build: echo child-build
  extra: echo extra
`)
	writeFile(t, dir, "sub/override.yaml", `
tasks:
  test: echo overridden
`)
	root := writeFile(t, dir, "tasks.yaml", `
environment:
  SHARED: root
include:
  - sub/more.yaml
  - name: sub/override.yaml
    overwrite: true
tasks:
  build: echo root-build
  test: echo root-test
`)

	f, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := f.Names(); !slices.Equal(got, []string{"build", "test", "extra"}) {
		t.Errorf("Names() = %v", got)
	}

	build, _ := f.Task("build")
	if raw := build.Commands[0].(*CommandRun).Raw; raw != "echo root-build" {
		t.Errorf("include without overwrite replaced build: %q", raw)
	}
	test, _ := f.Task("test")
	if raw := test.Commands[0].(*CommandRun).Raw; raw != "echo overridden" {
		t.Errorf("include with overwrite did not replace test: %q", raw)
	}
	extra, _ := f.Task("extra")
	if extra.Dir != filepath.Join(dir, "sub") {
		t.Errorf("included task Dir = %q", extra.Dir)
	}

	if f.Environment["SHARED"] != "root" || f.Environment["CHILD_ONLY"] != "1" {
		t.Errorf("unexpected merged environment %v", f.Environment)
	}
	if !slices.Equal(f.EnvFiles, []string{filepath.Join(dir, "sub", "child.env?")}) {
		t.Errorf("EnvFiles = %v", f.EnvFiles)
	}
}

func TestLoad_IncludeCycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\ntasks:\n  b: echo b\n")
	a := writeFile(t, dir, "a.yaml", "include: [b.yaml]\ntasks:\n  a: echo a\n")

	_, err := Load(a)
	if !errors.Is(err, ErrIncludeCycle) {
		t.Fatalf("expected include cycle, got %v", err)
	}
	var cycle *IncludeCycleError
	if !errors.As(err, &cycle) || len(cycle.Chain) != 3 {
		t.Errorf("unexpected chain: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name:    "unsupported extension",
			file:    "Makefile.mk",
			content: "all:",
			wantErr: "unsupported task file format",
		},
		{
			name:    "yaml syntax",
			file:    "tasks.yaml",
			content: "tasks: [",
			wantErr: "failed to parse yaml task file",
		},
		{
			name:    "unknown task key",
			file:    "tasks.yaml",
			content: "tasks:\n  a:\n    commands: [echo]\n    bogus: 1\n",
			wantErr: "tasks.a",
		},
		{
			name:    "empty commands",
			file:    "tasks.yaml",
			content: "tasks:\n  a:\n    commands: []\n",
			wantErr: "tasks.a",
		},
		{
			name:    "ambiguous command",
			file:    "tasks.yaml",
			content: "tasks:\n  a:\n    commands:\n      - command: echo\n        task: b\n",
			wantErr: "tasks.a",
		},
		{
			name:    "lua must return a table",
			file:    "tasks.lua",
			content: "return 42",
			wantErr: "must return a table",
		},
		{
			name:    "lua has no os library",
			file:    "tasks.lua",
			content: "os.execute('true') return {}",
			wantErr: "failed to parse lua task file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writeFile(t, t.TempDir(), tt.file, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "tasks.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoad_PackageManagerKeysWarn(t *testing.T) {
	t.Parallel()

	f, err := Load(writeFile(t, t.TempDir(), "tasks.yaml", "use_npm: true\nuse_cargo:\n  work_dir: x\ntasks:\n  a: echo a\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Warnings) != 2 {
		t.Errorf("expected two warnings, got %v", f.Warnings)
	}
}

func TestLoadBytes_MaxFileSize(t *testing.T) {
	t.Parallel()

	_, err := LoadBytes([]byte("tasks:\n  a: echo a\n"), "tasks.yaml", WithMaxFileSize(4))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Format != FormatYAML {
		t.Errorf("Format = %q", parseErr.Format)
	}
}
