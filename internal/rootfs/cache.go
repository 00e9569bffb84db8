// SPDX-License-Identifier: MPL-2.0

package rootfs

import (
	"github.com/sandboxctx/sandboxctx/pkg/fspath"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

// DefaultCacheDirName is the directory under the output base that holds
// extracted rootfs images when no override is configured.
const DefaultCacheDirName = "rootfs"

// CachePath returns override when it is set, and outputBase/rootfs
// otherwise. It performs no I/O.
func CachePath(override types.FilesystemPath, outputBase types.FilesystemPath) types.FilesystemPath {
	if !override.IsBlank() {
		return override
	}
	return fspath.JoinStr(outputBase, DefaultCacheDirName)
}
