// SPDX-License-Identifier: MPL-2.0

// Package fspath provides typed wrappers around path/filepath functions that
// accept and return types.FilesystemPath.
package fspath

import (
	"fmt"
	"path/filepath"

	"github.com/sandboxctx/sandboxctx/pkg/types"
)

// JoinStr wraps filepath.Join, accepting a typed base path and raw string
// segments.
func JoinStr(base types.FilesystemPath, elem ...string) types.FilesystemPath {
	parts := make([]string, 1, 1+len(elem))
	parts[0] = string(base)
	parts = append(parts, elem...)
	return types.FilesystemPath(filepath.Join(parts...))
}

// Dir wraps filepath.Dir for FilesystemPath.
func Dir(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.Dir(string(p)))
}

// Base wraps filepath.Base for FilesystemPath.
func Base(p types.FilesystemPath) string {
	return filepath.Base(string(p))
}

// Abs wraps filepath.Abs for FilesystemPath.
func Abs(p types.FilesystemPath) (types.FilesystemPath, error) {
	abs, err := filepath.Abs(string(p))
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	return types.FilesystemPath(abs), nil
}

// Clean wraps filepath.Clean for FilesystemPath.
func Clean(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.Clean(string(p)))
}

// IsAbs wraps filepath.IsAbs for FilesystemPath.
func IsAbs(p types.FilesystemPath) bool {
	return filepath.IsAbs(string(p))
}

// Within reports whether p lies inside root after both are cleaned. A path
// equal to root counts as within.
func Within(root, p types.FilesystemPath) bool {
	rel, err := filepath.Rel(string(Clean(root)), string(Clean(p)))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !filepath.IsAbs(rel) && !hasDotDotPrefix(rel))
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && rel[2] == filepath.Separator
}
