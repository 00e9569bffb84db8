// SPDX-License-Identifier: MPL-2.0

package target

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandboxctx/sandboxctx/pkg/types"
)

const (
	// KindFile is a single source or generated file.
	KindFile Kind = "file"
	// KindRule is a rule instance; RuleClass says which rule.
	KindRule Kind = "rule"
	// KindPackageGroup is a visibility group. It never denotes files.
	KindPackageGroup Kind = "package_group"

	// FilegroupClass is the rule class of filegroup aggregates.
	FilegroupClass = "filegroup"
	// SrcsAttr is the attribute holding a filegroup's members.
	SrcsAttr = "srcs"
)

var (
	// ErrNotFound is returned by a Resolver when no target matches a label.
	ErrNotFound = errors.New("no such target")
	// ErrInterrupted is returned by a Resolver when a lookup was cancelled.
	ErrInterrupted = errors.New("target lookup interrupted")
	// ErrNotFile is returned by a Fetcher asked to fetch a non-file target.
	ErrNotFile = errors.New("not a file target")
	// ErrInvalidKind is the sentinel error wrapped by InvalidKindError.
	ErrInvalidKind = errors.New("invalid target kind")
)

type (
	// Kind is the closed set of target kinds.
	Kind string

	// InvalidKindError is returned when a Kind value is not recognized.
	InvalidKindError struct {
		Value Kind
	}

	// Target is the result of a lookup.
	Target struct {
		Label Label
		Kind  Kind
		// RuleClass is set for KindRule targets (e.g. "filegroup").
		RuleClass string
		// Attrs holds raw, unconverted attribute values of a rule. Values
		// come straight from the package loader; callers must check shapes.
		Attrs map[string]any
	}

	// NotFoundError is returned when a label names no target.
	NotFoundError struct {
		Label  Label
		Reason string
	}

	// NotFileError is returned when a label names a target that is not a
	// file.
	NotFileError struct {
		Label Label
		Kind  Kind
	}

	// Resolver looks targets up by label.
	Resolver interface {
		Lookup(ctx context.Context, l Label) (Target, error)
	}

	// Fetcher materializes a file label on local disk and returns its path.
	Fetcher interface {
		FetchFile(ctx context.Context, l Label) (types.FilesystemPath, error)
	}

	// ResolverFunc adapts a function to Resolver.
	ResolverFunc func(ctx context.Context, l Label) (Target, error)

	// FetcherFunc adapts a function to Fetcher.
	FetcherFunc func(ctx context.Context, l Label) (types.FilesystemPath, error)
)

// Lookup implements Resolver.
func (f ResolverFunc) Lookup(ctx context.Context, l Label) (Target, error) { return f(ctx, l) }

// FetchFile implements Fetcher.
func (f FetcherFunc) FetchFile(ctx context.Context, l Label) (types.FilesystemPath, error) {
	return f(ctx, l)
}

// String returns the string representation of the Kind.
func (k Kind) String() string { return string(k) }

// Validate returns nil if k is one of the defined kinds.
func (k Kind) Validate() error {
	switch k {
	case KindFile, KindRule, KindPackageGroup:
		return nil
	default:
		return &InvalidKindError{Value: k}
	}
}

// IsFilegroup reports whether t is a filegroup rule.
func (t Target) IsFilegroup() bool {
	return t.Kind == KindRule && t.RuleClass == FilegroupClass
}

// Error implements the error interface.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid target kind %q (valid: %s, %s, %s)", e.Value, KindFile, KindRule, KindPackageGroup)
}

// Unwrap returns ErrInvalidKind for errors.Is() compatibility.
func (e *InvalidKindError) Unwrap() error { return ErrInvalidKind }

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("no such target '%s'", e.Label)
	}
	return fmt.Sprintf("no such target '%s': %s", e.Label, e.Reason)
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Error implements the error interface.
func (e *NotFileError) Error() string {
	return fmt.Sprintf("'%s' is not a file target (kind %s)", e.Label, e.Kind)
}

// Unwrap returns ErrNotFile for errors.Is() compatibility.
func (e *NotFileError) Unwrap() error { return ErrNotFile }
