// SPDX-License-Identifier: MPL-2.0

package rootfs

import (
	"errors"
	"strings"

	"github.com/sandboxctx/sandboxctx/internal/target"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

// OptionName is the user-facing name of the rootfs option.
const OptionName = "sandbox_rootfs"

var (
	// ErrConfiguration matches every *ConfigurationError via errors.Is.
	ErrConfiguration = errors.New("invalid sandbox configuration")
	// ErrMaterialization matches every *MaterializationError via errors.Is.
	ErrMaterialization = errors.New("rootfs materialization failed")
)

type (
	// ConfigurationError reports an unusable sandbox option. It is fatal for
	// the invocation.
	ConfigurationError struct {
		// Option is the option at fault, e.g. "sandbox_rootfs".
		Option string
		// Label is the offending reference, if any.
		Label target.Label
		// Reason is a short human-readable explanation.
		Reason string
		// Cause is the underlying error, if any.
		Cause error
	}

	// MaterializationError reports an I/O failure while fetching or
	// extracting a rootfs archive.
	MaterializationError struct {
		Label   target.Label
		Archive types.FilesystemPath
		Op      string
		Cause   error
	}
)

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Option)
	if !e.Label.IsZero() {
		b.WriteString(" '")
		b.WriteString(e.Label.String())
		b.WriteString("'")
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error { return e.Cause }

// Error implements the error interface.
func (e *MaterializationError) Error() string {
	var b strings.Builder
	b.WriteString("rootfs ")
	b.WriteString(e.Op)
	switch {
	case !e.Label.IsZero():
		b.WriteString(" '")
		b.WriteString(e.Label.String())
		b.WriteString("'")
	case e.Archive != "":
		b.WriteString(" ")
		b.WriteString(e.Archive.String())
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Is reports whether target is ErrMaterialization.
func (e *MaterializationError) Is(target error) bool { return target == ErrMaterialization }

// Unwrap returns the underlying cause.
func (e *MaterializationError) Unwrap() error { return e.Cause }

func configErr(l target.Label, reason string, cause error) *ConfigurationError {
	return &ConfigurationError{Option: OptionName, Label: l, Reason: reason, Cause: cause}
}
