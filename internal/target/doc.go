// SPDX-License-Identifier: MPL-2.0

// Package target defines the symbolic references the sandbox configuration
// accepts and the collaborator contracts used to resolve them.
//
// A [Label] names a target as "@repo//package:name". A [Target] is what a
// [Resolver] returns for a label: either a single file or a rule. Kinds form a
// closed set ([KindFile], [KindRule], [KindPackageGroup]) so resolution code
// can switch over them exhaustively. A [Fetcher] turns a file label into a
// path on local disk.
package target
