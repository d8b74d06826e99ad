// SPDX-License-Identifier: MPL-2.0

package taskfile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkrun/mk/pkg/cueutil"
)

// ErrIncludeCycle is the sentinel wrapped by IncludeCycleError.
var ErrIncludeCycle = errors.New("include cycle")

type (
	// IncludeCycleError reports a file that includes itself, directly or
	// through other files.
	IncludeCycleError struct {
		Chain []string
	}

	// LoadOption configures Load.
	LoadOption func(*loader)

	loader struct {
		maxFileSize int64
		visiting    map[string]bool
	}
)

// Error implements the error interface.
func (e *IncludeCycleError) Error() string {
	return "include cycle: " + strings.Join(e.Chain, " -> ")
}

// Unwrap returns ErrIncludeCycle for errors.Is() compatibility.
func (e *IncludeCycleError) Unwrap() error { return ErrIncludeCycle }

// WithMaxFileSize caps the size of each loaded file.
func WithMaxFileSize(size int64) LoadOption {
	return func(l *loader) {
		l.maxFileSize = size
	}
}

// Load reads the task file at path, merges its includes, and validates the
// result. The format is chosen by extension.
func Load(path string, opts ...LoadOption) (*TaskFile, error) {
	l := newLoader(opts)
	return l.load(path, nil)
}

// LoadBytes parses task file content. path selects the format and anchors
// relative paths; includes are read from disk relative to it.
func LoadBytes(data []byte, path string, opts ...LoadOption) (*TaskFile, error) {
	l := newLoader(opts)
	abs := absPath(path)
	l.visiting[abs] = true
	return l.parse(data, path, []string{abs})
}

func newLoader(opts []LoadOption) *loader {
	l := &loader{maxFileSize: cueutil.DefaultMaxFileSize, visiting: make(map[string]bool)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *loader) load(path string, chain []string) (*TaskFile, error) {
	abs := absPath(path)
	chain = append(chain, abs)
	if l.visiting[abs] {
		return nil, &IncludeCycleError{Chain: chain}
	}
	l.visiting[abs] = true
	defer delete(l.visiting, abs)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file at %s: %w", path, err)
	}
	return l.parse(data, path, chain)
}

func (l *loader) parse(data []byte, path string, chain []string) (*TaskFile, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	if err := cueutil.CheckFileSize(data, l.maxFileSize, path); err != nil {
		return nil, &ParseError{Path: path, Format: format, Err: err}
	}

	doc, order, err := parsers[format](data, path)
	if err != nil {
		return nil, &ParseError{Path: path, Format: format, Err: err}
	}
	if err := validateDocument(doc, path); err != nil {
		return nil, &ParseError{Path: path, Format: format, Err: err}
	}

	f, err := decodeFile(doc, order, path)
	if err != nil {
		return nil, &ParseError{Path: path, Format: format, Err: err}
	}

	for _, inc := range f.Includes {
		incPath := inc.Name
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(f.Dir, incPath)
		}
		child, err := l.load(incPath, chain)
		if err != nil {
			return nil, fmt.Errorf("%s: include %q: %w", path, inc.Name, err)
		}
		f.merge(child, inc.Overwrite)
	}
	return f, nil
}

// merge folds an included file into f. Tasks and global variables that f
// already declares win unless overwrite is set. Included env files keep
// resolving against the included file's directory.
func (f *TaskFile) merge(child *TaskFile, overwrite bool) {
	for _, t := range child.tasks {
		if !f.Add(t, overwrite) {
			slog.Debug("included task shadowed", "task", t.Name, "include", child.Path)
		}
	}
	for k, v := range child.Environment {
		if _, ok := f.Environment[k]; ok && !overwrite {
			continue
		}
		if f.Environment == nil {
			f.Environment = make(map[string]string)
		}
		f.Environment[k] = v
	}
	for _, ef := range child.EnvFiles {
		if !filepath.IsAbs(strings.TrimSuffix(ef, "?")) {
			ef = filepath.Join(child.Dir, ef)
		}
		f.EnvFiles = append(f.EnvFiles, ef)
	}
	f.Warnings = append(f.Warnings, child.Warnings...)
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
