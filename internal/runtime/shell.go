// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/mkrun/mk/pkg/taskfile"
)

const (
	// EmbeddedShell selects the built-in POSIX interpreter instead of a host
	// shell binary.
	EmbeddedShell = "mk-sh"

	// DefaultShell is used when neither the command nor its task names one.
	DefaultShell = "sh"
)

// Shell is a resolved shell program and the flags placed before the script.
type Shell struct {
	Program string
	Args    []string
}

// ShellFrom resolves a declared shell, returning fallback when none is set.
func ShellFrom(s *taskfile.Shell, fallback Shell) Shell {
	if s == nil || s.Command == "" {
		return fallback
	}
	return Shell{Program: s.Command, Args: slices.Clone(s.Args)}
}

// IsEmbedded reports whether the shell runs in-process.
func (s Shell) IsEmbedded() bool {
	return s.Program == EmbeddedShell
}

// Argv returns the arguments that run script under the shell.
func (s Shell) Argv(script string) []string {
	args := s.Args
	if len(args) == 0 {
		args = defaultShellArgs(s.Program)
	}
	return append(slices.Clone(args), script)
}

// String renders the shell as it would be typed.
func (s Shell) String() string {
	if len(s.Args) == 0 {
		return s.Program
	}
	return s.Program + " " + strings.Join(s.Args, " ")
}

// defaultShellArgs returns the flag that makes a shell run its next argument
// as a script.
func defaultShellArgs(program string) []string {
	base := strings.TrimSuffix(filepath.Base(program), ".exe")

	switch base {
	case "cmd":
		return []string{"/C"}
	case "powershell", "pwsh":
		return []string{"-NoProfile", "-Command"}
	case "python", "python3", "node":
		return []string{"-c"}
	case "ruby", "perl":
		return []string{"-e"}
	default:
		return []string{"-c"}
	}
}
