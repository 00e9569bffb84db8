// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sandboxctx",
		Short: "Select and configure sandboxed execution strategies",
		Long: TitleStyle.Render("sandboxctx") + SubtitleStyle.Render(" - sandbox strategy selection for build actions") + `

sandboxctx detects the host platform, picks the sandbox strategy for it and
resolves the optional root filesystem image the Linux sandbox runs in.

` + SubtitleStyle.Render("Examples:") + `
  sandboxctx strategies                          Show the strategy for this host
  sandboxctx strategies --rootfs //images:base   Resolve a rootfs as part of it
  sandboxctx rootfs resolve //images:base        Resolve a rootfs label
  sandboxctx rootfs prepare                      Extract the configured rootfs
  sandboxctx config show --format yaml           Show the effective configuration`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&app.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/sandboxctx/config.cue)")
	pf.BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	pf.String("workspace", "", "workspace root directory")
	pf.String("output-base", "", "output base directory")
	pf.String("rootfs", "", "label of the sandbox rootfs archive (file or single-file filegroup)")
	pf.String("rootfs-cache-path", "", "directory rootfs archives are extracted into (default <output-base>/rootfs)")
	pf.StringArray("test-arg", nil, "test argument; repeatable")
	pf.Bool("verbose-failures", false, "print full sandbox command lines of failed actions")
	pf.Bool("sandbox-debug", false, "keep sandbox directories after execution")

	rootCmd.AddCommand(newStrategiesCommand(app))
	rootCmd.AddCommand(newRootfsCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))
	rootCmd.AddCommand(newVersionCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with a non-zero code on error.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithErrorHandler(app.handleError),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(int(exitCodeFor(err)))
	}
}
