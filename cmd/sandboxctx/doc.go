// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for sandboxctx.
//
// The commands load configuration, build the sandbox strategy provider for
// the host and report what it selected. They also resolve, locate and
// extract rootfs images without building a provider.
package cmd
