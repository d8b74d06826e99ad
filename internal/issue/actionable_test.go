// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{"operation only", &ActionableError{Operation: "load task file"}, "failed to load task file"},
		{"with resource", &ActionableError{Operation: "load task file", Resource: "./tasks.yaml"}, "failed to load task file: ./tasks.yaml"},
		{"with cause", &ActionableError{Operation: "parse settings", Cause: errors.New("syntax error at line 5")}, "failed to parse settings: syntax error at line 5"},
		{
			"full context",
			&ActionableError{Operation: "build container image", Resource: "app:latest", Cause: errors.New("exit status 1")},
			"failed to build container image: app:latest: exit status 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("underlying error")

	if err := (&ActionableError{Operation: "run", Cause: cause}); !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if (&ActionableError{Operation: "run"}).Unwrap() != nil {
		t.Error("Unwrap() should return nil without a cause")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	root := errors.New("no such file")
	joined := errors.Join(fmt.Errorf("read tasks.yaml: %w", root), errors.New("include failed"))

	tests := []struct {
		name     string
		err      *ActionableError
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name: "suggestions",
			err: &ActionableError{
				Operation:   "load task file",
				Resource:    "./tasks.yaml",
				Suggestions: []string{"Run 'mk list'", "Pass another file with -c"},
			},
			contains: []string{"failed to load task file: ./tasks.yaml", "• Run 'mk list'", "• Pass another file with -c"},
		},
		{
			name:     "chain hidden when not verbose",
			err:      &ActionableError{Operation: "load task file", Cause: joined},
			contains: []string{"failed to load task file"},
			excludes: []string{"Error chain:"},
		},
		{
			name:    "verbose walks joined causes",
			err:     &ActionableError{Operation: "load task file", Cause: joined},
			verbose: true,
			contains: []string{
				"Error chain:",
				"2. read tasks.yaml: no such file",
				"3. no such file",
				"4. include failed",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.err.Format(tt.verbose)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Format() missing %q:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("Format() should not contain %q:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()
	cause := errors.New("permission denied")

	ae := NewErrorContext().
		WithOperation("write settings").
		WithResource("~/.config/mk/config.cue").
		WithSuggestion("Check directory permissions").
		WithSuggestions("Use --settings", "Run mk config path").
		Wrap(cause).
		Build()

	if ae == nil {
		t.Fatal("Build() returned nil")
	}
	if ae.Operation != "write settings" || ae.Resource != "~/.config/mk/config.cue" {
		t.Errorf("unexpected context %+v", ae)
	}
	if len(ae.Suggestions) != 3 {
		t.Errorf("expected 3 suggestions, got %v", ae.Suggestions)
	}
	if !errors.Is(ae, cause) {
		t.Error("built error should wrap the cause")
	}
}

func TestErrorContext_MissingOperation(t *testing.T) {
	t.Parallel()
	ctx := NewErrorContext().WithResource("tasks.yaml").Wrap(errors.New("x"))

	if ctx.Build() != nil {
		t.Error("Build() should return nil without an operation")
	}
	if err := ctx.BuildError(); err != nil {
		t.Errorf("BuildError() should return a nil interface, got %#v", err)
	}
}

func TestErrorContext_BuildIsolatesCopies(t *testing.T) {
	t.Parallel()
	ctx := NewErrorContext().WithOperation("run container").WithSuggestion("first")

	first := ctx.Build()
	ctx.WithSuggestion("second")
	second := ctx.Build()

	if len(first.Suggestions) != 1 {
		t.Errorf("earlier build changed after reuse: %v", first.Suggestions)
	}
	if len(second.Suggestions) != 2 {
		t.Errorf("expected 2 suggestions, got %v", second.Suggestions)
	}
}
