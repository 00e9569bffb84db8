// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/fang"

	"github.com/sandboxctx/sandboxctx/internal/config"
	"github.com/sandboxctx/sandboxctx/internal/issue"
	"github.com/sandboxctx/sandboxctx/internal/rootfs"
	"github.com/sandboxctx/sandboxctx/internal/target"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

// classifyError maps a failure to the issue catalog. It returns 0 when no
// catalog entry fits.
func classifyError(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.IssueID != 0 {
		return ae.IssueID
	}

	var cfgErr *rootfs.ConfigurationError
	isCfgErr := errors.As(err, &cfgErr)
	var matErr *rootfs.MaterializationError
	if errors.As(err, &matErr) {
		if matErr.Op == "fetch" {
			return issue.RootfsFetchFailedId
		}
		return issue.RootfsExtractFailedId
	}

	switch {
	case isCfgErr && cfgErr.Option != rootfs.OptionName:
		return issue.RootfsCacheUnusableId
	case errors.Is(err, target.ErrNotFound), errors.Is(err, target.ErrInterrupted):
		return issue.RootfsLookupFailedId
	case isCfgErr:
		return issue.RootfsShapeInvalidId
	default:
		return 0
	}
}

// exitCodeFor maps a command failure to the process exit status.
func exitCodeFor(err error) types.ExitCode {
	switch {
	case err == nil:
		return types.ExitSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, target.ErrInterrupted):
		return types.ExitInterrupted
	case errors.Is(err, rootfs.ErrConfiguration), classifyError(err) == issue.ConfigLoadFailedId:
		return types.ExitConfiguration
	default:
		return types.ExitFailure
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// handleError prints err and, when the catalog has guidance for it, the
// rendered guidance.
func (a *App) handleError(w io.Writer, styles fang.Styles, err error) {
	id := classifyError(err)
	if id == 0 {
		fang.DefaultErrorHandler(w, styles, err)
		return
	}

	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, a.verbose))
	rendered, renderErr := issue.Get(id).Render(glamourStyle(a.colorScheme))
	if renderErr != nil {
		return
	}
	fmt.Fprint(w, rendered)
}

// glamourStyle maps the configured color scheme to a glamour standard style.
func glamourStyle(cs config.ColorScheme) string {
	switch cs {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}
