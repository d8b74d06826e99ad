// SPDX-License-Identifier: MPL-2.0

package taskfile

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Supported task file formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatCUE  Format = "cue"
	FormatLua  Format = "lua"
)

// ErrUnsupportedFormat is returned for file extensions with no loader.
var ErrUnsupportedFormat = errors.New("unsupported task file format")

type (
	// Format identifies a task file syntax.
	Format string

	// parseFunc decodes raw file content into a generic document and the
	// declaration order of its tasks, when the syntax preserves it.
	parseFunc func(data []byte, filename string) (doc map[string]any, order []string, err error)

	// ParseError reports a syntax or schema failure in a task file.
	ParseError struct {
		Path   string
		Format Format
		Err    error
	}
)

var parsers = map[Format]parseFunc{
	FormatYAML: parseYAML,
	FormatJSON: parseJSON,
	FormatTOML: parseTOML,
	FormatCUE:  parseCUE,
	FormatLua:  parseLua,
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s task file %s: %v", e.Format, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// FormatFromPath selects a format by file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".cue":
		return FormatCUE, nil
	case ".lua":
		return FormatLua, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
}
