// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/tar"
	"io"
	"os"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the stream wrapping a test tarball.
type Compression int

const (
	// NoCompression writes a plain tar stream.
	NoCompression Compression = iota
	// Gzip wraps the tar stream in gzip.
	Gzip
	// Zstd wraps the tar stream in zstd.
	Zstd
)

// TarEntry describes one member of a test tarball. Entries with a Linkname
// become symlinks; entries whose Name ends in "/" become directories.
type TarEntry struct {
	Name     string
	Body     string
	Linkname string
	Hardlink bool
	Mode     int64
}

// MustWriteTar writes entries as a tarball at path.
func MustWriteTar(t testing.TB, path string, c Compression, entries ...TarEntry) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			t.Fatalf("failed to close %s: %v", path, err)
		}
	}()

	var w io.Writer = f
	var flush func() error
	switch c {
	case Gzip:
		gw := gzip.NewWriter(f)
		w, flush = gw, gw.Close
	case Zstd:
		zw, err := zstd.NewWriter(f)
		if err != nil {
			t.Fatalf("failed to create zstd writer: %v", err)
		}
		w, flush = zw, zw.Close
	default:
		flush = func() error { return nil }
	}

	tw := tar.NewWriter(w)
	for _, e := range entries {
		hdr := tarHeader(e)
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write header %s: %v", e.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := io.WriteString(tw, e.Body); err != nil {
				t.Fatalf("failed to write body %s: %v", e.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	if err := flush(); err != nil {
		t.Fatalf("failed to flush compressor: %v", err)
	}
}

func tarHeader(e TarEntry) *tar.Header {
	mode := e.Mode
	switch {
	case e.Linkname != "" && e.Hardlink:
		return &tar.Header{Name: e.Name, Linkname: e.Linkname, Typeflag: tar.TypeLink, Mode: 0o644}
	case e.Linkname != "":
		return &tar.Header{Name: e.Name, Linkname: e.Linkname, Typeflag: tar.TypeSymlink, Mode: 0o777}
	case len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/':
		if mode == 0 {
			mode = 0o755
		}
		return &tar.Header{Name: e.Name, Typeflag: tar.TypeDir, Mode: mode}
	default:
		if mode == 0 {
			mode = 0o644
		}
		return &tar.Header{Name: e.Name, Typeflag: tar.TypeReg, Mode: mode, Size: int64(len(e.Body))}
	}
}
