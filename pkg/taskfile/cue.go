// SPDX-License-Identifier: MPL-2.0

package taskfile

import (
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"

	"github.com/mkrun/mk/pkg/cueutil"
)

// parseCUE evaluates a CUE task file. The file must be concrete; it is
// exported through JSON so every format reaches the schema as the same
// plain data.
func parseCUE(data []byte, filename string) (map[string]any, []string, error) {
	v, err := cueutil.Compile(data, cueutil.WithFilename(filename))
	if err != nil {
		return nil, nil, err
	}

	var order []string
	if tasks := v.LookupPath(cue.ParsePath("tasks")); tasks.Exists() {
		it, err := tasks.Fields()
		if err != nil {
			return nil, nil, cueutil.FormatError(err, filename)
		}
		for it.Next() {
			order = append(order, it.Selector().Unquoted())
		}
	}

	out, err := v.MarshalJSON()
	if err != nil {
		return nil, nil, cueutil.FormatError(err, filename)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filename, err)
	}
	return doc, order, nil
}
