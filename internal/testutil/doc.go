// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that fail the test on setup
// errors instead of returning them.
//
// Common helpers include filesystem setup (MustMkdirAll, MustWriteFile),
// environment management (MustSetenv), and archive builders (MustWriteTar)
// for rootfs cache tests.
package testutil
