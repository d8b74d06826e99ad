// SPDX-License-Identifier: MPL-2.0

package taskfile

import (
	_ "embed"

	"github.com/mkrun/mk/pkg/cueutil"
)

//go:embed taskfile_schema.cue
var taskfileSchema []byte

// Schema returns the CUE schema task files are validated against.
func Schema() []byte {
	return append([]byte(nil), taskfileSchema...)
}

func validateDocument(doc map[string]any, filename string) error {
	return cueutil.Validate(taskfileSchema, "#TaskFile", doc, cueutil.WithFilename(filename))
}
