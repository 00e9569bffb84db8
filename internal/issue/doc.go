// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. An error can also point at an Issue from the catalog,
// whose Markdown guidance the CLI renders with glamour.
package issue
