// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Compile compiles data, unifies it with the definition at schemaPath in
// schema and validates the result. The unified value is returned for callers
// that decode into something other than a struct (e.g. a Viper config map).
func Compile(schema, data []byte, schemaPath string, opts ...Option) (cue.Value, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	filename := options.filename
	if filename == "" {
		filename = "<input>"
	}

	if err := CheckFileSize(data, options.maxFileSize, filename); err != nil {
		return cue.Value{}, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return cue.Value{}, FormatError(userValue.Err(), filename)
	}

	root := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if root.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, root.Err())
	}

	unified := root.Unify(userValue)
	if err := unified.Validate(cue.Concrete(options.concrete)); err != nil {
		return cue.Value{}, FormatError(err, filename)
	}

	return unified, nil
}

// ParseAndDecode runs Compile and decodes the unified value into T.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*T, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	unified, err := Compile(schema, data, schemaPath, opts...)
	if err != nil {
		return nil, err
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		name := options.filename
		if name == "" {
			name = "<input>"
		}
		return nil, FormatError(err, name)
	}
	return &result, nil
}
