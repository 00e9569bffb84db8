// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"os"

	"github.com/sandboxctx/sandboxctx/internal/config"
	"github.com/sandboxctx/sandboxctx/pkg/platform"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives an App and reaches configuration and the host through it.
	App struct {
		Config   config.Provider
		Detector platform.Detector
		stdout   io.Writer
		stderr   io.Writer

		// Global flag values.
		cfgFile string
		verbose bool

		// Set once configuration has loaded; drives issue rendering.
		colorScheme config.ColorScheme
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config   config.Provider
		Detector platform.Detector
		Stdout   io.Writer
		Stderr   io.Writer
	}
)

// NewApp builds an App from deps.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:   deps.Config,
		Detector: deps.Detector,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,

		colorScheme: config.ColorSchemeAuto,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Detector == nil {
		app.Detector = platform.Host()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}
