// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// newLogger returns a slog logger backed by a charmbracelet/log handler.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "sandboxctx",
		ReportTimestamp: verbose,
	})
	return slog.New(handler)
}
