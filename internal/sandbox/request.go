// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/sandboxctx/sandboxctx/internal/target"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

// DebugWrapperFlag is the test argument that turns on interactive test
// debugging. Sandboxes leave the network reachable while it is present.
const DebugWrapperFlag = "--wrapper_script_flag=--debug"

type (
	// Options are the sandbox-specific build options.
	Options struct {
		// Rootfs optionally names the root filesystem image. The zero label
		// means the sandbox reuses the host filesystem.
		Rootfs target.Label
		// RootfsCachePath overrides where rootfs images are extracted.
		RootfsCachePath types.FilesystemPath
		// Debug keeps sandbox directories around after execution.
		Debug bool
		// TmpfsDirs are mounted as empty tmpfs inside the sandbox.
		TmpfsDirs []string
		// BindMounts are extra "source[:target]" mounts.
		BindMounts []string
		// BlockedPaths are made inaccessible inside the sandbox.
		BlockedPaths []string
	}

	// Directories is the directory layout of the invocation.
	Directories struct {
		OutputBase  types.FilesystemPath
		ExecRoot    types.FilesystemPath
		Workspace   types.FilesystemPath
		InstallBase types.FilesystemPath
	}

	// Request is the snapshot of options sandbox construction depends on.
	// It is built once per invocation and not modified afterwards.
	Request struct {
		// InvocationID correlates log lines of one build invocation.
		InvocationID string
		// VerboseFailures makes strategies print full sandbox command lines
		// for failed actions.
		VerboseFailures bool
		// TestArguments are the --test_arg values of the invocation.
		TestArguments []string
		Options       Options
		// BackgroundWorkers is forwarded untouched to the strategies.
		BackgroundWorkers *errgroup.Group
		ClientEnv         map[string]string
		ProductName       string
		Directories       Directories
	}
)

// UnblockNetwork reports whether testArgs contain DebugWrapperFlag exactly.
func UnblockNetwork(testArgs []string) bool {
	return slices.Contains(testArgs, DebugWrapperFlag)
}

func (o Options) clone() Options {
	o.TmpfsDirs = slices.Clone(o.TmpfsDirs)
	o.BindMounts = slices.Clone(o.BindMounts)
	o.BlockedPaths = slices.Clone(o.BlockedPaths)
	return o
}

func cloneEnv(env map[string]string) map[string]string {
	if env == nil {
		return map[string]string{}
	}
	return maps.Clone(env)
}
