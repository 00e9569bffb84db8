// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/sandboxctx/sandboxctx/pkg/types"
)

// ErrInvalidLoadOptions is the sentinel error wrapped by InvalidLoadOptionsError.
var ErrInvalidLoadOptions = errors.New("invalid load options")

type (
	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ConfigFilePath forces loading from a specific config file when set.
		ConfigFilePath types.FilesystemPath
		// ConfigDirPath overrides the config directory lookup when set.
		ConfigDirPath types.FilesystemPath
		// WorkingDir is searched for sandboxctx.cue. Empty means the process
		// working directory.
		WorkingDir types.FilesystemPath
		// Flags are bound according to FlagKeys when set.
		Flags *pflag.FlagSet
	}

	// InvalidLoadOptionsError is returned when LoadOptions has invalid fields.
	InvalidLoadOptionsError struct {
		FieldErrors []error
	}

	// Provider loads configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	fileProvider struct{}
)

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return loadWithOptions(ctx, opts)
}

// Validate rejects whitespace-only paths. Empty paths mean "use the default".
func (o LoadOptions) Validate() error {
	var errs []error
	check := func(name string, p types.FilesystemPath) {
		if p == "" {
			return
		}
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	check("config file", o.ConfigFilePath)
	check("config dir", o.ConfigDirPath)
	check("working dir", o.WorkingDir)
	if len(errs) > 0 {
		return &InvalidLoadOptionsError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface for InvalidLoadOptionsError.
func (e *InvalidLoadOptionsError) Error() string {
	return fmt.Sprintf("invalid load options: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidLoadOptions for errors.Is() compatibility.
func (e *InvalidLoadOptionsError) Unwrap() error { return ErrInvalidLoadOptions }
