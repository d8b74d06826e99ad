// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Compile compiles CUE source into a value using a fresh context.
func Compile(data []byte, opts ...Option) (cue.Value, error) {
	o := applyOptions(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return cue.Value{}, err
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(o.filename))
	if v.Err() != nil {
		return cue.Value{}, FormatError(v.Err(), o.filename)
	}
	return v, nil
}

// Validate checks a decoded Go document (maps, slices, scalars) against the
// definition found at definition in schema.
func Validate(schema []byte, definition string, doc any, opts ...Option) error {
	o := applyOptions(opts)
	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	value := ctx.Encode(doc)
	if value.Err() != nil {
		return FormatError(value.Err(), o.filename)
	}
	return unifyAndValidate(schemaValue, definition, value, o)
}

// ValidateValue checks an already compiled value against a schema definition.
// The value is re-encoded into the schema's context through its syntax, so
// values from any context are accepted.
func ValidateValue(schema []byte, definition string, value cue.Value, opts ...Option) error {
	o := applyOptions(opts)
	schemaValue := value.Context().CompileBytes(schema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}
	return unifyAndValidate(schemaValue, definition, value, o)
}

func unifyAndValidate(schemaValue cue.Value, definition string, value cue.Value, o options) error {
	def := schemaValue.LookupPath(cue.ParsePath(definition))
	if def.Err() != nil {
		return fmt.Errorf("internal error: schema definition %s not found: %w", definition, def.Err())
	}

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return FormatError(err, o.filename)
	}
	return nil
}
