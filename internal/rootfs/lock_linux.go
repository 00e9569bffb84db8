// SPDX-License-Identifier: MPL-2.0

//go:build linux

package rootfs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/sandboxctx/sandboxctx/pkg/fspath"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

// lockFileName lives in the cache root. An orphaned zero-byte lock file is
// harmless; the kernel drops the flock when the fd closes.
const lockFileName = ".lock"

// errFlockUnavailable is never returned on Linux; it exists so callers can
// share one code path with lock_other.go.
var errFlockUnavailable = errors.New("flock not available on this platform")

// cacheLock is an exclusive flock serializing extractions into one cache
// directory across processes.
type cacheLock struct {
	file *os.File
}

func acquireCacheLock(root types.FilesystemPath) (*cacheLock, error) {
	if err := os.MkdirAll(root.String(), 0o755); err != nil {
		return nil, fmt.Errorf("create cache root %s: %w", root, err)
	}
	lockPath := fspath.JoinStr(root, lockFileName)

	f, err := os.OpenFile(lockPath.String(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("flock %s: %w", lockPath, err)
	}

	return &cacheLock{file: f}, nil
}

// Release unlocks and closes the lock file. Safe to call more than once.
func (l *cacheLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		slog.Debug("flock unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Debug("lock file close failed", "error", err)
	}
	l.file = nil
}
