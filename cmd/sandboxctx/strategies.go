// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandboxctx/sandboxctx/internal/issue"
	"github.com/sandboxctx/sandboxctx/internal/sandbox"
)

type strategiesReport struct {
	Platform     string                `json:"platform" yaml:"platform"`
	InvocationID string                `json:"invocation_id" yaml:"invocation_id"`
	Strategies   []sandbox.Description `json:"strategies" yaml:"strategies"`
}

func newStrategiesCommand(app *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "Show the sandbox strategies selected for this host",
		Long: `Build the sandbox strategy provider for this host and list the strategies it
selected. Linux hosts get the linux-sandbox strategy, macOS hosts the
darwin-sandbox strategy, and every other host none.

When a rootfs is configured it is resolved and fetched, so configuration
errors surface here exactly as they would at the start of a build.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := app.newSession(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.close()) }()

			provider, err := sandbox.NewProvider(cmd.Context(), s.req, s.deps(app))
			if err != nil {
				return err
			}

			report := strategiesReport{
				Platform:     provider.Platform().String(),
				InvocationID: s.req.InvocationID,
				Strategies:   []sandbox.Description{},
			}
			for _, st := range provider.Strategies() {
				report.Strategies = append(report.Strategies, sandbox.Describe(st))
			}

			if done, err := writeStructured(app.stdout, format, report); done {
				return err
			}
			return renderStrategies(app.stdout, report, glamourStyle(app.colorScheme))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", outputText, "output format (text, json, yaml)")
	return cmd
}

func renderStrategies(w io.Writer, r strategiesReport, style string) error {
	fmt.Fprintln(w, TitleStyle.Render("Sandbox strategies"))
	fmt.Fprintln(w, field("platform", r.Platform))
	fmt.Fprintln(w)

	if len(r.Strategies) == 0 {
		guidance, err := issue.Get(issue.PlatformUnsupportedId).Render(style)
		if err != nil {
			return err
		}
		fmt.Fprint(w, guidance)
		return nil
	}

	for _, d := range r.Strategies {
		fmt.Fprintln(w, TitleStyle.Render(d.Name))
		caps := make([]string, len(d.Capabilities))
		for i, c := range d.Capabilities {
			caps[i] = string(c)
		}
		fmt.Fprintln(w, "  "+field("capabilities", strings.Join(caps, ", ")))
		fmt.Fprintln(w, "  "+field("verbose failures", fmt.Sprint(d.VerboseFailures)))
		fmt.Fprintln(w, "  "+field("network unblocked", fmt.Sprint(d.UnblockNetwork)))
		if len(d.HostSpawn) > 0 {
			fmt.Fprintln(w, "  "+field("host spawn", strings.Join(d.HostSpawn, " ")))
		}
		if d.RootfsCache != "" {
			fmt.Fprintln(w, "  "+field("rootfs cache", d.RootfsCache))
		}
		if d.Rootfs != nil {
			fmt.Fprintln(w, "  "+field("rootfs", d.Rootfs.Label))
			fmt.Fprintln(w, "  "+field("rootfs archive", d.Rootfs.Archive))
		} else if d.Name == sandbox.LinuxStrategyName {
			fmt.Fprintln(w, "  "+KeyStyle.Render("rootfs")+": "+SubtitleStyle.Render("(host filesystem)"))
		}
	}
	return nil
}
