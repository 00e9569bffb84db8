// SPDX-License-Identifier: MPL-2.0

// Package rootfs resolves the sandbox root filesystem option.
//
// The option is a label that must name either a file target or a filegroup
// with exactly one file. [ResolveReference] enforces that shape and returns
// the concrete file label; [Resolve] additionally fetches the archive from
// the workspace. [CachePath] picks the directory extracted images live in
// and [CacheManager] owns that directory.
//
// Every resolution problem surfaces as a [*ConfigurationError]. Lookups are
// never retried: a failed or interrupted lookup aborts sandbox setup for the
// invocation.
package rootfs
