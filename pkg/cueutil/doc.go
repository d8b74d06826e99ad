// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the CUE helpers shared by the task file loader and the
// settings loader.
//
// Every task file format is validated the same way: the decoded document is
// encoded into a CUE value, unified with an embedded schema definition and
// validated, and any failure is reported with a JSON-path style location:
//
//	//go:embed taskfile_schema.cue
//	var schema []byte
//
//	if err := cueutil.Validate(schema, "#TaskFile", doc, cueutil.WithFilename("tasks.yaml")); err != nil {
//	    return err // e.g. "tasks.yaml: tasks.build.commands[0]: ..."
//	}
package cueutil
