// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// writeStructured writes v as JSON or YAML. It reports false for the text
// format, which callers render themselves.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case outputText, "":
		return false, nil
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return true, fmt.Errorf("unknown output format %q (valid: text, json, yaml)", format)
	}
}
