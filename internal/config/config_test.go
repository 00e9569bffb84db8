// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/sandboxctx/sandboxctx/internal/issue"
	"github.com/sandboxctx/sandboxctx/internal/testutil"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

// isolated returns options that see no config file outside the test.
func isolated(t *testing.T) LoadOptions {
	t.Helper()
	return LoadOptions{
		ConfigDirPath: types.FilesystemPath(t.TempDir()),
		WorkingDir:    types.FilesystemPath(t.TempDir()),
	}
}

func writeConfig(t *testing.T, dir types.FilesystemPath, name, content string) types.FilesystemPath {
	t.Helper()
	p := filepath.Join(dir.String(), name)
	testutil.MustWriteFile(t, p, content)
	return types.FilesystemPath(p)
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewProvider().Load(t.Context(), isolated(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := DefaultConfig()
	if cfg.ProductName != want.ProductName || cfg.Workspace.Root != want.Workspace.Root {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("ColorScheme = %q, want auto", cfg.UI.ColorScheme)
	}
	if len(cfg.TestArgs) != 0 || cfg.Sandbox.Rootfs != "" {
		t.Errorf("TestArgs=%q Rootfs=%q, want empty", cfg.TestArgs, cfg.Sandbox.Rootfs)
	}
	if cfg.SourcePath != "" {
		t.Errorf("SourcePath = %q, want empty", cfg.SourcePath)
	}
}

func TestLoad_ConfigDirFile(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	path := writeConfig(t, opts.ConfigDirPath, "config.cue", `
workspace: {
	root: "/src/ws"
	repositories: {
		toolchains: "/src/toolchains"
	}
}
output_base: "/var/cache/out"
verbose_failures: true
test_args: ["--wrapper_script_flag=--debug", "--seed=1"]
sandbox: {
	rootfs:            "//images:rootfs"
	rootfs_cache_path: "/custom/rootfs"
	tmpfs_dirs: ["/tmp"]
	blocked_paths: ["/home"]
}
ui: verbose: true
`)

	cfg, err := NewProvider().Load(t.Context(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SourcePath != path {
		t.Errorf("SourcePath = %q, want %q", cfg.SourcePath, path)
	}
	if cfg.Workspace.Root != "/src/ws" || cfg.Workspace.Repositories["toolchains"] != "/src/toolchains" {
		t.Errorf("Workspace = %+v", cfg.Workspace)
	}
	if cfg.OutputBase != "/var/cache/out" || !cfg.VerboseFailures || !cfg.UI.Verbose {
		t.Errorf("OutputBase=%q VerboseFailures=%v UI.Verbose=%v", cfg.OutputBase, cfg.VerboseFailures, cfg.UI.Verbose)
	}
	if !slices.Equal(cfg.TestArgs, []string{"--wrapper_script_flag=--debug", "--seed=1"}) {
		t.Errorf("TestArgs = %q", cfg.TestArgs)
	}
	if cfg.Sandbox.Rootfs != "//images:rootfs" || cfg.Sandbox.RootfsCachePath != "/custom/rootfs" {
		t.Errorf("Sandbox = %+v", cfg.Sandbox)
	}
	if !slices.Equal(cfg.Sandbox.TmpfsDirs, []string{"/tmp"}) || !slices.Equal(cfg.Sandbox.BlockedPaths, []string{"/home"}) {
		t.Errorf("Sandbox dirs = %+v", cfg.Sandbox)
	}
	if cfg.ProductName != DefaultProductName {
		t.Errorf("ProductName = %q, want default", cfg.ProductName)
	}

	l, err := cfg.Sandbox.RootfsLabel()
	if err != nil || l.String() != "//images:rootfs" {
		t.Errorf("RootfsLabel() = %v, %v", l, err)
	}
}

func TestLoad_WorkingDirFile(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	path := writeConfig(t, opts.WorkingDir, "sandboxctx.cue", `product_name: "blaze"`)

	cfg, err := NewProvider().Load(t.Context(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ProductName != "blaze" || cfg.SourcePath != path {
		t.Errorf("ProductName=%q SourcePath=%q", cfg.ProductName, cfg.SourcePath)
	}
}

func TestLoad_ConfigDirWinsOverWorkingDir(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	writeConfig(t, opts.ConfigDirPath, "config.cue", `product_name: "fromdir"`)
	writeConfig(t, opts.WorkingDir, "sandboxctx.cue", `product_name: "fromcwd"`)

	cfg, err := NewProvider().Load(t.Context(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ProductName != "fromdir" {
		t.Errorf("ProductName = %q, want fromdir", cfg.ProductName)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	writeConfig(t, opts.ConfigDirPath, "config.cue", `product_name: "ignored"`)
	opts.ConfigFilePath = writeConfig(t, types.FilesystemPath(t.TempDir()), "custom.cue", `product_name: "explicit"`)

	cfg, err := NewProvider().Load(t.Context(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ProductName != "explicit" {
		t.Errorf("ProductName = %q, want explicit", cfg.ProductName)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	opts.ConfigFilePath = types.FilesystemPath(filepath.Join(t.TempDir(), "missing.cue"))

	_, err := NewProvider().Load(t.Context(), opts)
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("Load() error = %v, want *issue.ActionableError", err)
	}
	if ae.IssueID != issue.ConfigLoadFailedId || !ae.HasSuggestions() {
		t.Errorf("ActionableError = %+v", ae)
	}
}

func TestLoad_Rejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"syntax", "sandbox: {", "config.cue"},
		{"unknown field", `sandbox: rootfs_path: "/x"`, "rootfs_path"},
		{"bad color", `ui: color_scheme: "neon"`, "color_scheme"},
		{"relative tmpfs", `sandbox: tmpfs_dirs: ["tmp"]`, "tmpfs_dirs"},
		{"bad product", `product_name: "Bazel"`, "product_name"},
		{"upper case repository", `workspace: repositories: Foo: "/x"`, "Foo"},
		{"bad label", `sandbox: rootfs: "images:rootfs"`, "sandbox.rootfs"},
		{"unterminated quote", `test_args: "--name 'unterminated"`, "test_args"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := isolated(t)
			writeConfig(t, opts.ConfigDirPath, "config.cue", tt.content)

			cfg, err := NewProvider().Load(t.Context(), opts)
			if err == nil {
				t.Fatalf("Load() = %+v, want error", cfg)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad_TestArgsShellString(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	writeConfig(t, opts.ConfigDirPath, "config.cue",
		`test_args: "--wrapper_script_flag=--debug --name 'two words' \"quoted\""`)

	cfg, err := NewProvider().Load(t.Context(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"--wrapper_script_flag=--debug", "--name", "two words", "quoted"}
	if !slices.Equal(cfg.TestArgs, want) {
		t.Errorf("TestArgs = %q, want %q", cfg.TestArgs, want)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	opts := isolated(t)
	writeConfig(t, opts.ConfigDirPath, "config.cue", `sandbox: rootfs: "//from:file"`)
	t.Setenv("SANDBOXCTX_SANDBOX_ROOTFS", "//from:env")
	t.Setenv("SANDBOXCTX_TEST_ARGS", "-v --count=1")

	cfg, err := NewProvider().Load(t.Context(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sandbox.Rootfs != "//from:env" {
		t.Errorf("Rootfs = %q, want //from:env", cfg.Sandbox.Rootfs)
	}
	if !slices.Equal(cfg.TestArgs, []string{"-v", "--count=1"}) {
		t.Errorf("TestArgs = %q", cfg.TestArgs)
	}
}

func TestLoad_FlagsOverride(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	writeConfig(t, opts.ConfigDirPath, "config.cue", `
sandbox: rootfs: "//from:file"
verbose_failures: false
`)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("rootfs", "", "")
	fs.String("rootfs-cache-path", "", "")
	fs.StringArray("test-arg", nil, "")
	fs.Bool("verbose-failures", false, "")
	fs.Bool("unrelated", false, "")
	if err := fs.Parse([]string{
		"--rootfs=//from:flag",
		"--test-arg=--wrapper_script_flag=--debug",
		"--test-arg=-v",
		"--verbose-failures",
	}); err != nil {
		t.Fatal(err)
	}
	opts.Flags = fs

	cfg, err := NewProvider().Load(t.Context(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sandbox.Rootfs != "//from:flag" || !cfg.VerboseFailures {
		t.Errorf("Rootfs=%q VerboseFailures=%v", cfg.Sandbox.Rootfs, cfg.VerboseFailures)
	}
	if cfg.Sandbox.RootfsCachePath != "" {
		t.Errorf("unset flag leaked its default: RootfsCachePath=%q", cfg.Sandbox.RootfsCachePath)
	}
	if !slices.Equal(cfg.TestArgs, []string{"--wrapper_script_flag=--debug", "-v"}) {
		t.Errorf("TestArgs = %q", cfg.TestArgs)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := NewProvider().Load(ctx, isolated(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_Loads(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Workspace.Repositories = map[string]types.FilesystemPath{"b": "/b", "a": "/a"}
	cfg.OutputBase = "/out"
	cfg.TestArgs = []string{"--wrapper_script_flag=--debug"}
	cfg.Sandbox.Rootfs = "@a//img:rootfs"
	cfg.Sandbox.BindMounts = []string{"/src:/dst"}
	cfg.UI.ColorScheme = ColorSchemeDark

	generated := GenerateCUE(cfg)
	if strings.Index(generated, `"a": "/a"`) > strings.Index(generated, `"b": "/b"`) {
		t.Errorf("repositories not sorted:\n%s", generated)
	}

	opts := isolated(t)
	writeConfig(t, opts.ConfigDirPath, "config.cue", generated)
	got, err := NewProvider().Load(t.Context(), opts)
	if err != nil {
		t.Fatalf("Load(GenerateCUE()) error = %v\n%s", err, generated)
	}
	if got.OutputBase != cfg.OutputBase || got.Sandbox.Rootfs != cfg.Sandbox.Rootfs || got.UI.ColorScheme != ColorSchemeDark {
		t.Errorf("reloaded config = %+v", got)
	}
	if !slices.Equal(got.TestArgs, cfg.TestArgs) || !slices.Equal(got.Sandbox.BindMounts, cfg.Sandbox.BindMounts) {
		t.Errorf("reloaded lists: TestArgs=%q BindMounts=%q", got.TestArgs, got.Sandbox.BindMounts)
	}
	if len(got.Workspace.Repositories) != 2 {
		t.Errorf("reloaded repositories = %v", got.Workspace.Repositories)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	dir := types.FilesystemPath(filepath.Join(t.TempDir(), "nested"))

	path, created, err := CreateDefaultConfig(dir)
	if err != nil || !created {
		t.Fatalf("CreateDefaultConfig() = %q, %v, %v", path, created, err)
	}
	if !strings.Contains(testutil.MustReadFile(t, path.String()), "product_name") {
		t.Error("default config missing product_name")
	}

	again, created, err := CreateDefaultConfig(dir)
	if err != nil || created || again != path {
		t.Errorf("second CreateDefaultConfig() = %q, %v, %v; want existing file untouched", again, created, err)
	}
}

func TestTestArgsFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     any
		want    []string
		wantErr bool
	}{
		{"nil", nil, []string{}, false},
		{"blank", "  ", []string{}, false},
		{"string", "a 'b c'", []string{"a", "b c"}, false},
		{"strings", []string{"a b"}, []string{"a b"}, false},
		{"any", []any{"x", "y"}, []string{"x", "y"}, false},
		{"any non-string", []any{"x", 1}, nil, true},
		{"number", 42, nil, true},
		{"bad quoting", "'open", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := testArgsFrom(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTestArgs) {
					t.Errorf("testArgsFrom(%v) error = %v, want ErrInvalidTestArgs", tt.raw, err)
				}
				return
			}
			if err != nil || !slices.Equal(got, tt.want) {
				t.Errorf("testArgsFrom(%v) = %q, %v; want %q", tt.raw, got, err, tt.want)
			}
		})
	}
}
