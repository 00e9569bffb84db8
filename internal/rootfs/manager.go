// SPDX-License-Identifier: MPL-2.0

package rootfs

import (
	"context"
	_ "crypto/sha256" // registers digest.SHA256
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/opencontainers/go-digest"

	"github.com/sandboxctx/sandboxctx/pkg/fspath"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

const completeSuffix = ".complete"

// CacheManager owns the directory extracted rootfs images are stored in.
// Images are keyed by the digest of their archive, so the same archive is
// extracted at most once per cache directory. Prepare is safe for concurrent
// use by goroutines and, on Linux, by separate processes.
type CacheManager struct {
	root   types.FilesystemPath
	logger *slog.Logger
	mu     sync.Mutex
}

// NewCacheManager binds a CacheManager to dir. The directory is created
// lazily by Prepare.
func NewCacheManager(dir types.FilesystemPath, logger *slog.Logger) (*CacheManager, error) {
	if err := dir.Validate(); err != nil {
		return nil, fmt.Errorf("rootfs cache directory: %w", err)
	}
	abs, err := fspath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("rootfs cache directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheManager{root: abs, logger: logger}, nil
}

// Path returns the absolute cache directory.
func (m *CacheManager) Path() types.FilesystemPath {
	return m.root
}

// EntryDir returns the directory an archive with digest d is extracted to.
func (m *CacheManager) EntryDir(d digest.Digest) types.FilesystemPath {
	return fspath.JoinStr(m.root, d.Algorithm().String(), d.Encoded())
}

// Lookup returns the extracted directory for d if a complete extraction
// exists.
func (m *CacheManager) Lookup(d digest.Digest) (types.FilesystemPath, bool) {
	dir := m.EntryDir(d)
	if isComplete(dir) {
		return dir, true
	}
	return "", false
}

// Prepare extracts archive into the cache unless an extraction for the same
// content already exists, and returns the extracted directory.
func (m *CacheManager) Prepare(ctx context.Context, archive types.FilesystemPath) (types.FilesystemPath, error) {
	if err := ctx.Err(); err != nil {
		return "", &MaterializationError{Archive: archive, Op: "prepare", Cause: err}
	}

	d, err := digestFile(archive)
	if err != nil {
		return "", &MaterializationError{Archive: archive, Op: "digest", Cause: err}
	}

	if dir, ok := m.Lookup(d); ok {
		m.logger.Debug("rootfs cache hit", "digest", d.String(), "dir", dir.String())
		return dir, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	algDir := fspath.Dir(m.EntryDir(d))
	if err := os.MkdirAll(algDir.String(), 0o755); err != nil {
		return "", &MaterializationError{Archive: archive, Op: "create cache", Cause: err}
	}

	lock, err := acquireCacheLock(m.root)
	switch {
	case errors.Is(err, errFlockUnavailable):
		// The in-process mutex is the only protection on this platform.
	case err != nil:
		return "", &MaterializationError{Archive: archive, Op: "lock cache", Cause: err}
	default:
		defer lock.Release()
	}

	// Another process may have finished while we waited for the lock.
	if dir, ok := m.Lookup(d); ok {
		return dir, nil
	}

	dir := m.EntryDir(d)
	tmp, err := os.MkdirTemp(algDir.String(), d.Encoded()+".tmp-")
	if err != nil {
		return "", &MaterializationError{Archive: archive, Op: "create staging dir", Cause: err}
	}
	defer func() { _ = os.RemoveAll(tmp) }() // no-op after a successful rename

	m.logger.Info("extracting rootfs", "archive", archive.String(), "digest", d.String())
	if err := extractArchive(ctx, archive, types.FilesystemPath(tmp), m.logger); err != nil {
		return "", &MaterializationError{Archive: archive, Op: "extract", Cause: err}
	}

	if err := os.RemoveAll(dir.String()); err != nil {
		return "", &MaterializationError{Archive: archive, Op: "replace stale entry", Cause: err}
	}
	if err := os.Rename(tmp, dir.String()); err != nil {
		return "", &MaterializationError{Archive: archive, Op: "install", Cause: err}
	}
	if err := os.WriteFile(dir.String()+completeSuffix, []byte(d.String()+"\n"), 0o644); err != nil {
		return "", &MaterializationError{Archive: archive, Op: "mark complete", Cause: err}
	}

	return dir, nil
}

// Digest returns the content digest the cache keys archive by.
func Digest(archive types.FilesystemPath) (digest.Digest, error) {
	return digestFile(archive)
}

func digestFile(p types.FilesystemPath) (digest.Digest, error) {
	f, err := os.Open(p.String())
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }() // read-only; close error non-critical

	return digest.SHA256.FromReader(f)
}

func isComplete(dir types.FilesystemPath) bool {
	if _, err := os.Stat(dir.String() + completeSuffix); err != nil {
		return false
	}
	info, err := os.Stat(dir.String())
	return err == nil && info.IsDir()
}
