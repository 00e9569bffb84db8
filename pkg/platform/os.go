// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// OS name constants for runtime.GOOS comparisons.
const (
	GOOSLinux  = "linux"
	GOOSDarwin = "darwin"
)

const (
	// Linux hosts support the namespace sandbox with an optional rootfs.
	Linux Platform = "linux"
	// Darwin hosts support the sandbox-exec based strategy.
	Darwin Platform = "darwin"
	// Other covers every host without a sandbox strategy.
	Other Platform = "other"
)

// ErrInvalidPlatform is the sentinel error wrapped by InvalidPlatformError.
var ErrInvalidPlatform = errors.New("invalid platform")

type (
	// Platform is the closed set of host platforms known to strategy selection.
	Platform string

	// InvalidPlatformError is returned when a Platform value is not one of
	// Linux, Darwin or Other. It wraps ErrInvalidPlatform for errors.Is().
	InvalidPlatformError struct {
		Value Platform
	}

	// Detector reports the platform of the current host.
	Detector interface {
		Current() Platform
	}

	// DetectorFunc adapts a function to the Detector interface.
	DetectorFunc func() Platform

	hostDetector struct {
		goos string
	}
)

// Host returns the Detector for the running process.
func Host() Detector {
	return hostDetector{goos: runtime.GOOS}
}

// Fixed returns a Detector that always reports p.
func Fixed(p Platform) Detector {
	return DetectorFunc(func() Platform { return p })
}

// FromGOOS maps a runtime.GOOS value onto the closed Platform set.
func FromGOOS(goos string) Platform {
	switch goos {
	case GOOSLinux:
		return Linux
	case GOOSDarwin:
		return Darwin
	default:
		return Other
	}
}

// Current implements Detector.
func (f DetectorFunc) Current() Platform { return f() }

// Current implements Detector.
func (d hostDetector) Current() Platform { return FromGOOS(d.goos) }

// String returns the string representation of the Platform.
func (p Platform) String() string { return string(p) }

// Validate returns nil if p is Linux, Darwin or Other.
func (p Platform) Validate() error {
	switch p {
	case Linux, Darwin, Other:
		return nil
	default:
		return &InvalidPlatformError{Value: p}
	}
}

// SupportsRootfs reports whether strategies on p can run against a custom
// root filesystem image.
func (p Platform) SupportsRootfs() bool {
	return p == Linux
}

// Error implements the error interface.
func (e *InvalidPlatformError) Error() string {
	return fmt.Sprintf("invalid platform %q (valid: %s, %s, %s)", e.Value, Linux, Darwin, Other)
}

// Unwrap returns ErrInvalidPlatform so callers can use errors.Is.
func (e *InvalidPlatformError) Unwrap() error { return ErrInvalidPlatform }
