// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
)

// ValidationError is a single schema violation at a document location.
type ValidationError struct {
	// FilePath is the file being validated.
	FilePath string
	// Path is the JSON-path style location, e.g. "tasks.build.commands[0]".
	Path string
	// Message is the CUE diagnostic with the location prefix removed.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.FilePath, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// FormatError converts a CUE error into one error per violation, each
// prefixed with the file and the JSON-path of the offending field. Non-CUE
// errors are wrapped with the file path.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrors := errors.Errors(err)
	if len(cueErrors) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	violations := make([]*ValidationError, 0, len(cueErrors))
	for _, e := range cueErrors {
		raw := errors.Path(e)
		path := formatPath(raw)
		msg := e.Error()
		if prefix := strings.Join(raw, "."); prefix != "" && strings.HasPrefix(msg, prefix+":") {
			msg = strings.TrimSpace(msg[len(prefix)+1:])
		}
		violations = append(violations, &ValidationError{FilePath: filePath, Path: path, Message: msg})
	}

	if len(violations) == 1 {
		return violations[0]
	}
	lines := make([]string, len(violations))
	for i, v := range violations {
		if v.Path != "" {
			lines[i] = v.Path + ": " + v.Message
		} else {
			lines[i] = v.Message
		}
	}
	return fmt.Errorf("%s: validation failed:\n  %s", filePath, strings.Join(lines, "\n  "))
}

// formatPath renders ["tasks", "build", "commands", "0"] as
// "tasks.build.commands[0]".
func formatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			sb.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize rejects inputs larger than maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, len(data), maxSize)
	}
	return nil
}
