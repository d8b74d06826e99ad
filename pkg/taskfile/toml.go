// SPDX-License-Identifier: MPL-2.0

package taskfile

import (
	"github.com/pelletier/go-toml/v2"
)

// parseTOML decodes a TOML task file. Tasks are ordered by name.
func parseTOML(data []byte, _ string) (map[string]any, []string, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}
	return doc, nil, nil
}
