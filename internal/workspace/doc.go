// SPDX-License-Identifier: MPL-2.0

// Package workspace answers target lookups and file fetches from a source
// tree on local disk.
//
// Every directory under the workspace root is a package. A package may
// declare targets in a TARGETS.cue file:
//
//	targets: {
//		"rootfs": {kind: "filegroup", srcs: ["images/base.tar.zst"]}
//		"tools":  {kind: "rule", rule_class: "genrule"}
//	}
//
// Files that exist in the package directory are file targets even when they
// are not declared. External repositories ("@name//pkg:target") map to
// additional roots.
package workspace
