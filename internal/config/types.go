// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sandboxctx/sandboxctx/internal/target"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultProductName names the build tool in sandbox diagnostics.
	DefaultProductName = "sandboxctx"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidProductName is returned when a product name is malformed.
	ErrInvalidProductName = errors.New("invalid product name")
	// ErrInvalidRepository is returned for a malformed repository mapping.
	ErrInvalidRepository = errors.New("invalid repository mapping")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	productNameRE = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
)

type (
	// ColorScheme selects terminal colors.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidProductNameError is returned when a product name is malformed.
	InvalidProductNameError struct {
		Value string
	}

	// InvalidRepositoryError is returned for a malformed repository mapping.
	InvalidRepositoryError struct {
		Name   string
		Reason string
	}

	// InvalidConfigError collects every field error of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		Workspace WorkspaceConfig `json:"workspace" yaml:"workspace" toml:"workspace" mapstructure:"workspace"`
		// OutputBase holds build outputs; the rootfs cache defaults to a
		// directory below it.
		OutputBase      types.FilesystemPath `json:"output_base" yaml:"output_base" toml:"output_base" mapstructure:"output_base"`
		ProductName     string               `json:"product_name" yaml:"product_name" toml:"product_name" mapstructure:"product_name"`
		VerboseFailures bool                 `json:"verbose_failures" yaml:"verbose_failures" toml:"verbose_failures" mapstructure:"verbose_failures"`
		// TestArgs is decoded by hand because it may be a list or one
		// shell-quoted string.
		TestArgs []string      `json:"test_args" yaml:"test_args" toml:"test_args" mapstructure:"-"`
		Sandbox  SandboxConfig `json:"sandbox" yaml:"sandbox" toml:"sandbox" mapstructure:"sandbox"`
		UI       UIConfig      `json:"ui" yaml:"ui" toml:"ui" mapstructure:"ui"`

		// SourcePath is the file the configuration was read from, if any.
		SourcePath types.FilesystemPath `json:"-" yaml:"-" toml:"-" mapstructure:"-"`
	}

	// WorkspaceConfig locates the workspace and its external repositories.
	WorkspaceConfig struct {
		Root         types.FilesystemPath            `json:"root" yaml:"root" toml:"root" mapstructure:"root"`
		Repositories map[string]types.FilesystemPath `json:"repositories" yaml:"repositories" toml:"repositories" mapstructure:"repositories"`
	}

	// SandboxConfig holds the sandbox options.
	SandboxConfig struct {
		// Rootfs is the label of the rootfs archive; empty means none.
		Rootfs          string               `json:"rootfs" yaml:"rootfs" toml:"rootfs" mapstructure:"rootfs"`
		RootfsCachePath types.FilesystemPath `json:"rootfs_cache_path" yaml:"rootfs_cache_path" toml:"rootfs_cache_path" mapstructure:"rootfs_cache_path"`
		Debug           bool                 `json:"debug" yaml:"debug" toml:"debug" mapstructure:"debug"`
		TmpfsDirs       []string             `json:"tmpfs_dirs" yaml:"tmpfs_dirs" toml:"tmpfs_dirs" mapstructure:"tmpfs_dirs"`
		BindMounts      []string             `json:"bind_mounts" yaml:"bind_mounts" toml:"bind_mounts" mapstructure:"bind_mounts"`
		BlockedPaths    []string             `json:"blocked_paths" yaml:"blocked_paths" toml:"blocked_paths" mapstructure:"blocked_paths"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" yaml:"color_scheme" toml:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables debug logging.
		Verbose bool `json:"verbose" yaml:"verbose" toml:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			Root:         ".",
			Repositories: map[string]types.FilesystemPath{},
		},
		OutputBase:  "", // resolved by DefaultOutputBase
		ProductName: DefaultProductName,
		TestArgs:    []string{},
		Sandbox: SandboxConfig{
			TmpfsDirs:    []string{},
			BindMounts:   []string{},
			BlockedPaths: []string{},
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// RootfsLabel parses Rootfs. An empty value yields the zero label.
func (c SandboxConfig) RootfsLabel() (target.Label, error) {
	if strings.TrimSpace(c.Rootfs) == "" {
		return target.Label{}, nil
	}
	return target.ParseLabel(c.Rootfs)
}

// Validate checks the fields CUE cannot check, such as label syntax.
func (c Config) Validate() error {
	var errs []error
	if !productNameRE.MatchString(c.ProductName) {
		errs = append(errs, &InvalidProductNameError{Value: c.ProductName})
	}
	if err := c.Workspace.Root.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("workspace.root: %w", err))
	}
	for name, dir := range c.Workspace.Repositories {
		if name == "" {
			errs = append(errs, &InvalidRepositoryError{Name: name, Reason: "empty name"})
			continue
		}
		if dir.IsBlank() {
			errs = append(errs, &InvalidRepositoryError{Name: name, Reason: "empty path"})
		}
	}
	if _, err := c.Sandbox.RootfsLabel(); err != nil {
		errs = append(errs, fmt.Errorf("sandbox.rootfs: %w", err))
	}
	if c.Sandbox.RootfsCachePath != "" {
		if err := c.Sandbox.RootfsCachePath.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("sandbox.rootfs_cache_path: %w", err))
		}
	}
	if err := c.UI.ColorScheme.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Error implements the error interface for InvalidProductNameError.
func (e *InvalidProductNameError) Error() string {
	return fmt.Sprintf("invalid product name %q (must match %s)", e.Value, productNameRE)
}

// Unwrap returns ErrInvalidProductName for errors.Is() compatibility.
func (e *InvalidProductNameError) Unwrap() error { return ErrInvalidProductName }

// Error implements the error interface for InvalidRepositoryError.
func (e *InvalidRepositoryError) Error() string {
	return fmt.Sprintf("invalid repository %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidRepository for errors.Is() compatibility.
func (e *InvalidRepositoryError) Unwrap() error { return ErrInvalidRepository }

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// Validate returns an error if the ColorScheme is not one of the known values.
func (cs ColorScheme) Validate() error {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	default:
		return &InvalidColorSchemeError{Value: cs}
	}
}
