// SPDX-License-Identifier: MPL-2.0

package rootfs

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/sandboxctx/sandboxctx/pkg/fspath"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

	errUnsafeEntry = errors.New("unsafe archive entry")
)

// extractArchive unpacks a plain, gzip or zstd compressed tarball into dest.
// The compression is sniffed from the leading bytes, not the file name,
// because fetched workspace files may have arbitrary names.
func extractArchive(ctx context.Context, archive, dest types.FilesystemPath, logger *slog.Logger) error {
	f, err := os.Open(archive.String())
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }() // read-only; close error non-critical

	r, closeFn, err := decompress(bufio.NewReader(f))
	if err != nil {
		return err
	}
	defer closeFn()

	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if err := extractEntry(tr, hdr, dest, logger); err != nil {
			return err
		}
	}
}

func decompress(br *bufio.Reader) (io.Reader, func(), error) {
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("read archive header: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return zr, func() { _ = zr.Close() }, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("open zstd stream: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return br, func() {}, nil
	}
}

func extractEntry(r io.Reader, hdr *tar.Header, dest types.FilesystemPath, logger *slog.Logger) error {
	rel, err := entryPath(hdr.Name)
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}
	target := fspath.JoinStr(dest, rel)

	if err := checkNoSymlinkParents(dest, rel); err != nil {
		return err
	}
	if err := checkNotSymlink(target); err != nil {
		return err
	}

	mode := os.FileMode(hdr.Mode).Perm()

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target.String(), mode|0o700)
	case tar.TypeReg:
		if err := os.MkdirAll(fspath.Dir(target).String(), 0o755); err != nil {
			return err
		}
		return writeFile(target, r, mode)
	case tar.TypeSymlink:
		if err := os.MkdirAll(fspath.Dir(target).String(), 0o755); err != nil {
			return err
		}
		// Absolute link targets are interpreted inside the rootfs at run time.
		return os.Symlink(hdr.Linkname, target.String())
	case tar.TypeLink:
		linkRel, err := entryPath(hdr.Linkname)
		if err != nil {
			return err
		}
		if err := checkNoSymlinkParents(dest, linkRel); err != nil {
			return err
		}
		if err := checkNotSymlink(fspath.JoinStr(dest, linkRel)); err != nil {
			return err
		}
		if err := os.MkdirAll(fspath.Dir(target).String(), 0o755); err != nil {
			return err
		}
		return os.Link(fspath.JoinStr(dest, linkRel).String(), target.String())
	default:
		// Device nodes and fifos cannot be created unprivileged; the sandbox
		// mounts its own /dev.
		logger.Debug("skipping special archive entry", "name", hdr.Name, "type", string(hdr.Typeflag))
		return nil
	}
}

// entryPath cleans a tar entry name and rejects absolute or escaping names.
func entryPath(name string) (string, error) {
	if name == "" || path.IsAbs(name) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q is absolute or empty", errUnsafeEntry, name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q escapes the destination", errUnsafeEntry, name)
	}
	return filepath.FromSlash(clean), nil
}

// checkNoSymlinkParents refuses to write through a symlink created by an
// earlier entry, which would let an archive place files outside dest.
func checkNoSymlinkParents(dest types.FilesystemPath, rel string) error {
	dir := filepath.Dir(rel)
	if dir == "." {
		return nil
	}
	cur := dest
	for _, part := range strings.Split(dir, string(filepath.Separator)) {
		cur = fspath.JoinStr(cur, part)
		info, err := os.Lstat(cur.String())
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %q traverses symlink %q", errUnsafeEntry, rel, cur)
		}
	}
	return nil
}

// checkNotSymlink refuses an entry whose own path is a symlink left by an
// earlier entry; writing there would follow the link out of dest.
func checkNotSymlink(p types.FilesystemPath) error {
	info, err := os.Lstat(p.String())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("%w: %q is an existing symlink", errUnsafeEntry, p)
	}
	return nil
}

func writeFile(p types.FilesystemPath, r io.Reader, mode os.FileMode) (err error) {
	f, err := os.OpenFile(p.String(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", p, closeErr)
		}
	}()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}
