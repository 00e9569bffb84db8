// SPDX-License-Identifier: MPL-2.0

//go:build !linux

package rootfs

import (
	"errors"

	"github.com/sandboxctx/sandboxctx/pkg/types"
)

// errFlockUnavailable makes CacheManager fall back to its in-process mutex.
// Rootfs images are only consumed by the Linux strategy, so cross-process
// locking elsewhere is not worth a platform-specific implementation.
var errFlockUnavailable = errors.New("flock not available on this platform")

type cacheLock struct{}

func acquireCacheLock(types.FilesystemPath) (*cacheLock, error) {
	return nil, errFlockUnavailable
}

// Release is a no-op on non-Linux platforms.
func (l *cacheLock) Release() {}
