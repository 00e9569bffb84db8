// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "load configuration"},
			expected: "failed to load configuration",
		},
		{
			name: "operation with resource",
			err: &ActionableError{
				Operation: "resolve sandbox rootfs",
				Resource:  "//images:rootfs",
			},
			expected: "failed to resolve sandbox rootfs: //images:rootfs",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "resolve sandbox rootfs",
				Resource:  "//images:rootfs",
				Cause:     errors.New("no such target"),
			},
			expected: "failed to resolve sandbox rootfs: //images:rootfs: no such target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_ErrorsIsAs(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("sentinel")
	err := NewErrorContext().
		WithOperation("prepare rootfs").
		Wrap(sentinel).
		BuildError()

	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should find the wrapped cause")
	}
	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatal("errors.As should find *ActionableError")
	}
	if ae.Operation != "prepare rootfs" {
		t.Errorf("Operation = %q", ae.Operation)
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("permission denied")
	err := &ActionableError{
		Operation:   "prepare rootfs",
		Resource:    "/cache/rootfs",
		Suggestions: []string{"Check permissions", "Use another cache path"},
		Cause:       &wrapped{msg: "extract", err: inner},
	}

	short := err.Format(false)
	if !strings.Contains(short, "  • Check permissions") || !strings.Contains(short, "  • Use another cache path") {
		t.Errorf("Format(false) missing suggestions:\n%s", short)
	}
	if strings.Contains(short, "Error chain:") {
		t.Errorf("Format(false) should not include the error chain:\n%s", short)
	}

	long := err.Format(true)
	if !strings.Contains(long, "Error chain:") {
		t.Fatalf("Format(true) should include the error chain:\n%s", long)
	}
	if !strings.Contains(long, "1. extract: permission denied") || !strings.Contains(long, "2. permission denied") {
		t.Errorf("Format(true) chain incomplete:\n%s", long)
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() without operation should return nil")
	}

	ae := NewErrorContext().
		WithOperation("load configuration").
		WithResource("config.cue").
		WithSuggestion("one").
		WithSuggestions("two", "three").
		WithIssue(ConfigLoadFailedId).
		Build()
	if ae == nil {
		t.Fatal("Build() returned nil")
	}
	if len(ae.Suggestions) != 3 || !ae.HasSuggestions() {
		t.Errorf("Suggestions = %v", ae.Suggestions)
	}
	if ae.Issue() == nil || ae.Issue().Id() != ConfigLoadFailedId {
		t.Errorf("Issue() = %v, want ConfigLoadFailedId", ae.Issue())
	}
	if (&ActionableError{Operation: "x"}).Issue() != nil {
		t.Error("Issue() without IssueID should be nil")
	}
}

func TestWrapWithContext(t *testing.T) {
	t.Parallel()

	if WrapWithContext(nil, "op", "res") != nil {
		t.Error("WrapWithContext(nil) should return nil")
	}
	cause := errors.New("boom")
	ae := WrapWithContext(cause, "prepare rootfs", "/tmp/a.tar")
	if ae.Error() != "failed to prepare rootfs: /tmp/a.tar: boom" {
		t.Errorf("Error() = %q", ae.Error())
	}
}

type wrapped struct {
	msg string
	err error
}

func (w *wrapped) Error() string { return w.msg + ": " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }
