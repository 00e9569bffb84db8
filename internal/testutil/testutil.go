// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// MustSetenv sets the environment variable key to value for the duration of
// the test and restores the previous value on cleanup.
func MustSetenv(t testing.TB, key, value string) {
	t.Helper()
	originalValue, hadValue := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadValue {
			if err := os.Setenv(key, originalValue); err != nil {
				t.Errorf("failed to restore env %s: %v", key, err)
			}
			return
		}
		if err := os.Unsetenv(key); err != nil {
			t.Errorf("failed to unset env %s: %v", key, err)
		}
	})
}

// MustMkdirAll creates a directory along with any necessary parents.
func MustMkdirAll(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// MustWriteFile writes content to path, creating parent directories.
func MustWriteFile(t testing.TB, path, content string) {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// MustReadFile returns the content of path.
func MustReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
