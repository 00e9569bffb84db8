// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// ExitSuccess reports a completed invocation.
	ExitSuccess ExitCode = 0
	// ExitFailure reports a failure with no more specific code.
	ExitFailure ExitCode = 1
	// ExitConfiguration reports invalid configuration: a malformed config
	// file or a sandbox option that cannot be satisfied.
	ExitConfiguration ExitCode = 2
	// ExitInterrupted reports an invocation canceled by a signal.
	ExitInterrupted ExitCode = 130
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is a process exit status in the POSIX range 0-255.
	// The zero value means success.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode for errors.Is() compatibility.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range.
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess reports whether c is ExitSuccess.
func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

// String returns the decimal form of c.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
