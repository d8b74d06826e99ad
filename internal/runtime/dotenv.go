// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"strings"

	"github.com/subosito/gotenv"
)

// LoadEnvFile loads a dotenv file and merges its contents into env.
// The path is resolved relative to basePath (the task file's directory).
// Files suffixed with '?' are optional; missing optional files are skipped.
func LoadEnvFile(env map[string]string, path, basePath string) error {
	return NewResolver().loadEnvFile(env, path, basePath)
}

func (r *Resolver) loadEnvFile(env map[string]string, path, basePath string) error {
	optional := strings.HasSuffix(path, "?")
	path = strings.TrimSuffix(path, "?")

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(basePath, filepath.FromSlash(path))
	}

	content, err := r.readFile(fullPath)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read env file '%s': %w", path, err)
	}

	return ParseEnvFile(env, content, path)
}

// ParseEnvFile parses dotenv content (KEY=value lines, comments, single and
// double quotes, an optional export prefix) and merges it into env.
// Variable references inside values expand against earlier lines.
func ParseEnvFile(env map[string]string, content []byte, filename string) error {
	parsed, err := gotenv.StrictParse(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	maps.Copy(env, parsed)
	return nil
}
