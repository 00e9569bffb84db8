// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sandboxctx/sandboxctx/pkg/platform"
)

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and host information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(app.stdout, field("version", getVersionString()))
			fmt.Fprintln(app.stdout, field("go", runtime.Version()))
			fmt.Fprintln(app.stdout, field("platform", app.Detector.Current().String()))
			fmt.Fprintln(app.stdout, field("app sandbox", platform.DetectAppSandbox().String()))
			return nil
		},
	}
}
