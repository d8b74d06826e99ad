// SPDX-License-Identifier: MPL-2.0

// Package taskfile provides the schema types and loaders for mk task files.
//
// A task file declares named tasks, each a list of commands plus optional
// preconditions, dependencies and environment. Files may be written in YAML,
// JSON, TOML, CUE or Lua; every format is decoded to plain data, validated
// against the embedded CUE schema, and decoded into the types in this
// package. Included files are merged into the including file.
package taskfile
