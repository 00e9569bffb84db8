// SPDX-License-Identifier: MPL-2.0

// Package sandbox selects and configures the sandboxed execution strategy for
// a build invocation.
//
// [NewProvider] detects the host platform once, asks [Build] for the strategy
// matching it and freezes the result. Linux gets a [*LinuxStrategy], which
// may carry a resolved root filesystem image and always carries the rootfs
// cache manager. Darwin gets a [*DarwinStrategy]. Every other platform gets
// no strategy at all, which is not an error: callers fall back to
// unsandboxed execution.
//
// Construction is all-or-nothing. A bad sandbox_rootfs value, a failed or
// interrupted target lookup, or a failed archive fetch aborts provider
// construction with a *rootfs.ConfigurationError. The package never runs
// commands and never schedules work on the background worker pool; it only
// hands the pool to the strategies it builds.
package sandbox
