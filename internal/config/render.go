// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// FormatCUE renders the configuration as a loadable CUE file.
	FormatCUE Format = "cue"
	// FormatJSON renders indented JSON.
	FormatJSON Format = "json"
	// FormatYAML renders YAML.
	FormatYAML Format = "yaml"
	// FormatTOML renders TOML.
	FormatTOML Format = "toml"
)

// ErrInvalidFormat is returned for an unknown output format.
var ErrInvalidFormat = errors.New("invalid output format")

type (
	// Format is an output format for Render.
	Format string

	// InvalidFormatError is returned for an unknown output format.
	InvalidFormatError struct {
		Value Format
	}
)

// Formats lists the supported output formats.
func Formats() []Format {
	return []Format{FormatCUE, FormatJSON, FormatYAML, FormatTOML}
}

// Validate returns an error if f is not a supported format.
func (f Format) Validate() error {
	switch f {
	case FormatCUE, FormatJSON, FormatYAML, FormatTOML:
		return nil
	default:
		return &InvalidFormatError{Value: f}
	}
}

// Error implements the error interface for InvalidFormatError.
func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid output format %q (valid: cue, json, yaml, toml)", e.Value)
}

// Unwrap returns ErrInvalidFormat for errors.Is() compatibility.
func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }

// Render serializes cfg in format f.
func Render(cfg *Config, f Format) ([]byte, error) {
	switch f {
	case FormatCUE:
		return []byte(GenerateCUE(cfg)), nil
	case FormatJSON:
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatTOML:
		return toml.Marshal(cfg)
	default:
		return nil, f.Validate()
	}
}
