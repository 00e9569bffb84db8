// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"context"

	"github.com/sandboxctx/sandboxctx/internal/rootfs"
	"github.com/sandboxctx/sandboxctx/pkg/platform"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

// LinuxStrategy runs spawns in Linux namespaces, optionally chrooted into a
// rootfs image.
type LinuxStrategy struct {
	baseStrategy
	cache  *rootfs.CacheManager
	rootfs *rootfs.Resolved
}

var _ Strategy = (*LinuxStrategy)(nil)

// Name implements Strategy.
func (s *LinuxStrategy) Name() string { return LinuxStrategyName }

// Platform implements Strategy.
func (s *LinuxStrategy) Platform() platform.Platform { return platform.Linux }

// CacheManager returns the manager of the rootfs cache directory.
func (s *LinuxStrategy) CacheManager() *rootfs.CacheManager { return s.cache }

// Rootfs returns the resolved rootfs image, or nil when none is configured.
func (s *LinuxStrategy) Rootfs() *rootfs.Resolved {
	if s.rootfs == nil {
		return nil
	}
	r := *s.rootfs
	return &r
}

// PrepareRootfs extracts the configured rootfs image into the cache and
// returns the directory to chroot into. It reports false when no rootfs is
// configured.
func (s *LinuxStrategy) PrepareRootfs(ctx context.Context) (types.FilesystemPath, bool, error) {
	if s.rootfs == nil {
		return "", false, nil
	}
	dir, err := s.cache.Prepare(ctx, s.rootfs.Archive)
	if err != nil {
		return "", true, err
	}
	return dir, true, nil
}
