// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sandboxctx/sandboxctx/internal/config"
	"github.com/sandboxctx/sandboxctx/internal/issue"
	"github.com/sandboxctx/sandboxctx/internal/rootfs"
	"github.com/sandboxctx/sandboxctx/internal/target"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	l := target.MustParseLabel("//images:rootfs")
	notFound := &target.NotFoundError{Label: l, Reason: "no such package"}

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{"plain", errors.New("boom"), 0},
		{
			"actionable with issue",
			issue.NewErrorContext().WithOperation("load configuration").WithIssue(issue.ConfigLoadFailedId).Wrap(errors.New("x")).BuildError(),
			issue.ConfigLoadFailedId,
		},
		{
			"shape",
			&rootfs.ConfigurationError{Option: rootfs.OptionName, Label: l, Reason: "filegroup must contain exactly one file"},
			issue.RootfsShapeInvalidId,
		},
		{
			"lookup",
			&rootfs.ConfigurationError{Option: rootfs.OptionName, Label: l, Reason: "lookup failed", Cause: notFound},
			issue.RootfsLookupFailedId,
		},
		{
			"interrupted",
			fmt.Errorf("%w: %w", target.ErrInterrupted, context.Canceled),
			issue.RootfsLookupFailedId,
		},
		{
			"fetch",
			&rootfs.ConfigurationError{Option: rootfs.OptionName, Label: l, Reason: "fetch failed",
				Cause: &rootfs.MaterializationError{Label: l, Op: "fetch", Cause: errors.New("io")}},
			issue.RootfsFetchFailedId,
		},
		{
			"extract",
			fmt.Errorf("prepare: %w", &rootfs.MaterializationError{Label: l, Op: "extract", Cause: errors.New("bad tar")}),
			issue.RootfsExtractFailedId,
		},
		{
			"cache",
			&rootfs.ConfigurationError{Option: "sandbox_rootfs_cache_path", Reason: "unusable", Cause: errors.New("perm")},
			issue.RootfsCacheUnusableId,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := classifyError(tt.err); got != tt.want {
				t.Errorf("classifyError() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain failure")
	if got := formatErrorForDisplay(plain, false); got != "plain failure" {
		t.Errorf("formatErrorForDisplay(plain) = %q", got)
	}

	ae := issue.NewErrorContext().
		WithOperation("resolve sandbox rootfs").
		WithSuggestion("pass a label").
		Wrap(plain).
		BuildError()
	if got := formatErrorForDisplay(ae, false); got == plain.Error() {
		t.Errorf("formatErrorForDisplay(actionable) = %q, want formatted output", got)
	}
}

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	l := target.MustParseLabel("//images:rootfs")
	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{"nil", nil, types.ExitSuccess},
		{"plain", errors.New("boom"), types.ExitFailure},
		{"canceled", fmt.Errorf("load: %w", context.Canceled), types.ExitInterrupted},
		{
			"interrupted lookup",
			&rootfs.ConfigurationError{Option: rootfs.OptionName, Label: l, Cause: target.ErrInterrupted},
			types.ExitInterrupted,
		},
		{"configuration", &rootfs.ConfigurationError{Option: rootfs.OptionName, Label: l, Reason: "bad"}, types.ExitConfiguration},
		{
			"config file",
			issue.NewErrorContext().WithOperation("load configuration").WithIssue(issue.ConfigLoadFailedId).Wrap(errors.New("x")).BuildError(),
			types.ExitConfiguration,
		},
		{"extract", &rootfs.MaterializationError{Label: l, Op: "extract", Cause: errors.New("bad")}, types.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGlamourStyle(t *testing.T) {
	t.Parallel()

	tests := map[config.ColorScheme]string{
		config.ColorSchemeAuto:  "auto",
		config.ColorSchemeDark:  "dark",
		config.ColorSchemeLight: "light",
		"":                      "auto",
	}
	for cs, want := range tests {
		if got := glamourStyle(cs); got != want {
			t.Errorf("glamourStyle(%q) = %q, want %q", cs, got, want)
		}
	}
}
