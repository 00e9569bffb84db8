// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandboxctx/sandboxctx/internal/config"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

// newConfigCommand creates the `sandboxctx config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage sandboxctx configuration",
		Long: `Manage sandboxctx configuration.

Configuration is read from, in order of precedence:
  - command-line flags
  - SANDBOXCTX_* environment variables (e.g. SANDBOXCTX_SANDBOX_ROOTFS)
  - the --config file, or config.cue in the config directory
    (Linux: ~/.config/sandboxctx, macOS: ~/Library/Application Support/sandboxctx),
    or sandboxctx.cue in the working directory
  - built-in defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := config.Format(format)
			if err := f.Validate(); err != nil {
				return err
			}
			cfg, err := app.loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := config.Render(cfg, f)
			if err != nil {
				return err
			}
			_, err = app.stdout.Write(out)
			return err
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "o", string(config.FormatCUE), "output format (cue, json, yaml, toml)")

	var dir string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := config.CreateDefaultConfig(types.FilesystemPath(dir))
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			} else {
				fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
			}
			return nil
		},
	}
	initCmd.Flags().StringVar(&dir, "dir", "", "directory to create config.cue in (default is the user config directory)")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			cfg, err := app.loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, field("config directory", cfgDir.String()))
			if cfg.SourcePath == "" {
				fmt.Fprintln(app.stdout, KeyStyle.Render("config file")+": "+SubtitleStyle.Render("(using defaults)"))
			} else {
				fmt.Fprintln(app.stdout, field("config file", cfg.SourcePath.String()))
			}
			return nil
		},
	}

	cfgCmd.AddCommand(showCmd, initCmd, pathCmd)
	return cfgCmd
}
