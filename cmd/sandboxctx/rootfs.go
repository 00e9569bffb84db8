// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandboxctx/sandboxctx/internal/issue"
	"github.com/sandboxctx/sandboxctx/internal/rootfs"
	"github.com/sandboxctx/sandboxctx/internal/target"
)

type rootfsReport struct {
	Requested string `json:"requested" yaml:"requested"`
	Label     string `json:"label" yaml:"label"`
	Archive   string `json:"archive" yaml:"archive"`
	Digest    string `json:"digest" yaml:"digest"`
	CacheDir  string `json:"cache_dir" yaml:"cache_dir"`
	Extracted string `json:"extracted,omitempty" yaml:"extracted,omitempty"`
}

func newRootfsCommand(app *App) *cobra.Command {
	rootfsCmd := &cobra.Command{
		Use:   "rootfs",
		Short: "Resolve and manage sandbox rootfs images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var resolveFormat string
	resolveCmd := &cobra.Command{
		Use:   "resolve [LABEL]",
		Short: "Resolve a rootfs label to its archive",
		Long: `Resolve a rootfs label to the archive file it denotes. The label must name a
file target or a filegroup with exactly one file. Without an argument the
configured rootfs is resolved.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.resolveRootfs(cmd, args, false)
			if err != nil {
				return err
			}
			return app.writeRootfsReport(resolveFormat, report)
		},
	}
	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "o", outputText, "output format (text, json, yaml)")

	var prepareFormat string
	prepareCmd := &cobra.Command{
		Use:   "prepare [LABEL]",
		Short: "Extract a rootfs archive into the cache",
		Long: `Resolve a rootfs label and extract its archive into the rootfs cache. An
archive already extracted is reused; extraction is keyed by content digest.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.resolveRootfs(cmd, args, true)
			if err != nil {
				return err
			}
			return app.writeRootfsReport(prepareFormat, report)
		},
	}
	prepareCmd.Flags().StringVarP(&prepareFormat, "format", "o", outputText, "output format (text, json, yaml)")

	cachePathCmd := &cobra.Command{
		Use:   "cache-path",
		Short: "Print the rootfs cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := app.newSession(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.close()) }()

			dir, err := s.cacheDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, dir)
			return nil
		},
	}

	rootfsCmd.AddCommand(resolveCmd, prepareCmd, cachePathCmd)
	return rootfsCmd
}

func (a *App) resolveRootfs(cmd *cobra.Command, args []string, extract bool) (report rootfsReport, err error) {
	s, err := a.newSession(cmd)
	if err != nil {
		return report, err
	}
	defer func() { err = errors.Join(err, s.close()) }()

	ref := s.req.Options.Rootfs
	if len(args) == 1 {
		if ref, err = target.ParseLabel(args[0]); err != nil {
			return report, err
		}
	}
	if ref.IsZero() {
		return report, issue.NewErrorContext().
			WithOperation("resolve sandbox rootfs").
			WithSuggestion("Pass a label, e.g. 'sandboxctx rootfs resolve //images:base'").
			WithSuggestion("Or set sandbox.rootfs in the configuration").
			Wrap(errors.New("no rootfs configured")).
			BuildError()
	}

	cacheDir, err := s.cacheDir()
	if err != nil {
		return report, err
	}
	resolved, err := rootfs.Resolve(cmd.Context(), s.ws, s.ws, ref, cacheDir)
	if err != nil {
		return report, err
	}
	d, err := rootfs.Digest(resolved.Archive)
	if err != nil {
		return report, &rootfs.MaterializationError{Label: resolved.Label, Archive: resolved.Archive, Op: "digest", Cause: err}
	}

	report = rootfsReport{
		Requested: resolved.Requested.String(),
		Label:     resolved.Label.String(),
		Archive:   resolved.Archive.String(),
		Digest:    d.String(),
		CacheDir:  cacheDir.String(),
	}
	if !extract {
		return report, nil
	}

	manager, err := rootfs.NewCacheManager(cacheDir, s.logger)
	if err != nil {
		return report, err
	}
	dir, err := manager.Prepare(cmd.Context(), resolved.Archive)
	if err != nil {
		return report, err
	}
	report.Extracted = dir.String()
	return report, nil
}

func (a *App) writeRootfsReport(format string, r rootfsReport) error {
	if done, err := writeStructured(a.stdout, format, r); done {
		return err
	}
	fmt.Fprintln(a.stdout, field("label", r.Label))
	if r.Requested != r.Label {
		fmt.Fprintln(a.stdout, field("requested", r.Requested))
	}
	fmt.Fprintln(a.stdout, field("archive", r.Archive))
	fmt.Fprintln(a.stdout, field("digest", r.Digest))
	fmt.Fprintln(a.stdout, field("cache", r.CacheDir))
	if r.Extracted != "" {
		fmt.Fprintln(a.stdout, field("extracted", r.Extracted))
	}
	return nil
}
