// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/shell"

	"github.com/sandboxctx/sandboxctx/internal/issue"
	"github.com/sandboxctx/sandboxctx/pkg/cueutil"
	"github.com/sandboxctx/sandboxctx/pkg/platform"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

const (
	// AppName is the application name.
	AppName = "sandboxctx"
	// ConfigFileName is the name of the config file in the config directory
	// (without extension).
	ConfigFileName = "config"
	// LocalConfigFileName is the name of the config file looked up in the
	// working directory (without extension).
	LocalConfigFileName = "sandboxctx"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment variable overrides, e.g.
	// SANDBOXCTX_SANDBOX_ROOTFS.
	EnvPrefix = "SANDBOXCTX"

	testArgsKey = "test_args"
)

//go:embed config_schema.cue
var configSchema []byte

// ErrInvalidTestArgs is returned when test_args cannot be split into words.
var ErrInvalidTestArgs = errors.New("invalid test_args")

// FlagKeys maps command-line flag names to configuration keys. Flags that
// are defined on the FlagSet passed in LoadOptions override every other
// source when set.
var FlagKeys = map[string]string{
	"workspace":         "workspace.root",
	"output-base":       "output_base",
	"verbose-failures":  "verbose_failures",
	"test-arg":          testArgsKey,
	"rootfs":            "sandbox.rootfs",
	"rootfs-cache-path": "sandbox.rootfs_cache_path",
	"sandbox-debug":     "sandbox.debug",
	"verbose":           "ui.verbose",
}

// ConfigDir returns the sandboxctx configuration directory using
// platform-specific conventions: macOS uses ~/Library/Application Support,
// everything else uses $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (types.FilesystemPath, error) {
	var configDir string

	switch runtime.GOOS {
	case platform.GOOSDarwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return types.FilesystemPath(filepath.Join(configDir, AppName)), nil
}

// DefaultOutputBase returns the output base used when none is configured:
// a directory below the user cache directory.
func DefaultOutputBase() (types.FilesystemPath, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get cache directory: %w", err)
	}
	return types.FilesystemPath(filepath.Join(cacheDir, AppName, "output_base")), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindFlags(v, opts.Flags); err != nil {
		return nil, err
	}

	resolvedPath, err := findConfigFile(opts)
	if err != nil {
		return nil, err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath.String()).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'sandboxctx config show' to see the effective configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.TestArgs, err = testArgsFrom(v.Get(testArgsKey))
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse test arguments").
			WithSuggestion("Quote arguments the way a POSIX shell would").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	cfg.SourcePath = resolvedPath

	if err := cfg.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath.String()).
			WithSuggestion("Labels look like //pkg:name or @repo//pkg:name").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("workspace.root", defaults.Workspace.Root)
	v.SetDefault("workspace.repositories", defaults.Workspace.Repositories)
	v.SetDefault("output_base", defaults.OutputBase)
	v.SetDefault("product_name", defaults.ProductName)
	v.SetDefault("verbose_failures", defaults.VerboseFailures)
	v.SetDefault(testArgsKey, defaults.TestArgs)
	v.SetDefault("sandbox.rootfs", defaults.Sandbox.Rootfs)
	v.SetDefault("sandbox.rootfs_cache_path", defaults.Sandbox.RootfsCachePath)
	v.SetDefault("sandbox.debug", defaults.Sandbox.Debug)
	v.SetDefault("sandbox.tmpfs_dirs", defaults.Sandbox.TmpfsDirs)
	v.SetDefault("sandbox.bind_mounts", defaults.Sandbox.BindMounts)
	v.SetDefault("sandbox.blocked_paths", defaults.Sandbox.BlockedPaths)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for name, key := range FlagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// findConfigFile picks the config file to load. An explicit path must exist;
// the implicit locations are optional.
func findConfigFile(opts LoadOptions) (types.FilesystemPath, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath.String()) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath.String()).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Run 'sandboxctx config init' to create a default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}

	candidates := []string{
		filepath.Join(cfgDir.String(), ConfigFileName+"."+ConfigFileExt),
		filepath.Join(opts.WorkingDir.String(), LocalConfigFileName+"."+ConfigFileExt),
	}
	for _, c := range candidates {
		if fileExists(c) {
			return types.FilesystemPath(c), nil
		}
	}
	return "", nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path types.FilesystemPath) error {
	data, err := os.ReadFile(path.String())
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Optional fields stay unset, so the value need not be concrete.
	unified, err := cueutil.Compile(configSchema, data, "#Config",
		cueutil.WithFilename(path.String()),
		cueutil.WithConcrete(false))
	if err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path.String())
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// testArgsFrom normalizes the raw test_args value. A string is split into
// words with shell quoting rules; lists are taken element by element.
func testArgsFrom(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return []string{}, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, nil
		}
		fields, err := shell.Fields(v, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTestArgs, err)
		}
		return fields, nil
	case []string:
		return slices.Clone(v), nil
	case []any:
		out := make([]string, 0, len(v))
		for i, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T, not a string", ErrInvalidTestArgs, i, elem)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported value of type %T", ErrInvalidTestArgs, raw)
	}
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file into dir unless one
// already exists. It returns the file path and whether it was written.
func CreateDefaultConfig(dir types.FilesystemPath) (types.FilesystemPath, bool, error) {
	if dir == "" {
		d, err := ConfigDir()
		if err != nil {
			return "", false, err
		}
		dir = d
	}

	if err := os.MkdirAll(dir.String(), 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := types.FilesystemPath(filepath.Join(dir.String(), ConfigFileName+"."+ConfigFileExt))
	if _, err := os.Stat(cfgPath.String()); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath.String(), []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// sandboxctx configuration file\n\n")

	sb.WriteString("workspace: {\n")
	fmt.Fprintf(&sb, "\troot: %q\n", cfg.Workspace.Root)
	if len(cfg.Workspace.Repositories) > 0 {
		sb.WriteString("\trepositories: {\n")
		names := make([]string, 0, len(cfg.Workspace.Repositories))
		for name := range cfg.Workspace.Repositories {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "\t\t%q: %q\n", name, cfg.Workspace.Repositories[name])
		}
		sb.WriteString("\t}\n")
	}
	sb.WriteString("}\n\n")

	if cfg.OutputBase != "" {
		fmt.Fprintf(&sb, "output_base: %q\n", cfg.OutputBase)
	}
	fmt.Fprintf(&sb, "product_name: %q\n", cfg.ProductName)
	fmt.Fprintf(&sb, "verbose_failures: %v\n", cfg.VerboseFailures)
	writeCUEList(&sb, "", "test_args", cfg.TestArgs)

	sb.WriteString("\nsandbox: {\n")
	if cfg.Sandbox.Rootfs != "" {
		fmt.Fprintf(&sb, "\trootfs: %q\n", cfg.Sandbox.Rootfs)
	}
	if cfg.Sandbox.RootfsCachePath != "" {
		fmt.Fprintf(&sb, "\trootfs_cache_path: %q\n", cfg.Sandbox.RootfsCachePath)
	}
	fmt.Fprintf(&sb, "\tdebug: %v\n", cfg.Sandbox.Debug)
	writeCUEList(&sb, "\t", "tmpfs_dirs", cfg.Sandbox.TmpfsDirs)
	writeCUEList(&sb, "\t", "bind_mounts", cfg.Sandbox.BindMounts)
	writeCUEList(&sb, "\t", "blocked_paths", cfg.Sandbox.BlockedPaths)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func writeCUEList(sb *strings.Builder, indent, key string, values []string) {
	if len(values) == 0 {
		fmt.Fprintf(sb, "%s%s: []\n", indent, key)
		return
	}
	fmt.Fprintf(sb, "%s%s: [\n", indent, key)
	for _, v := range values {
		fmt.Fprintf(sb, "%s\t%q,\n", indent, v)
	}
	fmt.Fprintf(sb, "%s]\n", indent)
}
