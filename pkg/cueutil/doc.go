// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the CUE compile/unify/decode flow shared by the
// configuration loader and the workspace TARGETS.cue reader.
//
//	//go:embed targets_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[targetsFile](schema, data, "#Targets",
//	    cueutil.WithFilename(path))
//
// Errors carry the offending file and a JSON-style path to the field.
package cueutil
