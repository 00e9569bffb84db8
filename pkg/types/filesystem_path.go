// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFilesystemPath is the sentinel error wrapped by InvalidFilesystemPathError.
var ErrInvalidFilesystemPath = errors.New("invalid filesystem path")

type (
	// FilesystemPath is an absolute or relative path on the local disk.
	// The zero value is invalid; a path must always point somewhere.
	FilesystemPath string

	// InvalidFilesystemPathError is returned when a FilesystemPath value is
	// empty or whitespace-only.
	InvalidFilesystemPathError struct {
		Value FilesystemPath
	}
)

// String returns the string representation of the FilesystemPath.
func (p FilesystemPath) String() string { return string(p) }

// IsBlank reports whether p is empty or whitespace-only.
func (p FilesystemPath) IsBlank() bool {
	return strings.TrimSpace(string(p)) == ""
}

// Validate returns an *InvalidFilesystemPathError when p is blank.
func (p FilesystemPath) Validate() error {
	if p.IsBlank() {
		return &InvalidFilesystemPathError{Value: p}
	}
	return nil
}

// Error implements the error interface for InvalidFilesystemPathError.
func (e *InvalidFilesystemPathError) Error() string {
	return fmt.Sprintf("invalid filesystem path %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidFilesystemPath for errors.Is() compatibility.
func (e *InvalidFilesystemPathError) Unwrap() error { return ErrInvalidFilesystemPath }
