// SPDX-License-Identifier: MPL-2.0

package rootfs

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandboxctx/sandboxctx/internal/target"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

const (
	reasonShape     = "must either be a filegroup or a file target"
	reasonOneFile   = "filegroup must have exactly one file"
	reasonBadSrcs   = "filegroup srcs must be a list of labels"
	reasonNotFile   = "filegroup member must be a file target"
	reasonLookup    = "lookup failed"
	reasonNoLookup  = "no target resolver configured"
	reasonNoFetcher = "no workspace fetcher configured"
)

// Resolved is a rootfs reference resolved to an archive on local disk.
type Resolved struct {
	// Requested is the label as configured.
	Requested target.Label
	// Label is the file target the request resolved to.
	Label target.Label
	// Archive is the local path of the archive.
	Archive types.FilesystemPath
	// CacheDir is where the archive is extracted.
	CacheDir types.FilesystemPath
}

// ResolveReference resolves ref to exactly one file target. A file target is
// returned unchanged; a filegroup must have exactly one member, which is
// returned. Any other target, or any lookup failure, yields a
// *ConfigurationError.
func ResolveReference(ctx context.Context, lookup target.Resolver, ref target.Label) (target.Label, error) {
	if lookup == nil {
		return target.Label{}, configErr(ref, reasonNoLookup, nil)
	}

	tgt, err := lookup.Lookup(ctx, ref)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, target.ErrInterrupted) {
			err = fmt.Errorf("%w: %w", target.ErrInterrupted, err)
		}
		return target.Label{}, configErr(ref, reasonLookup, err)
	}

	switch tgt.Kind {
	case target.KindFile:
		return ref, nil
	case target.KindRule:
		if tgt.RuleClass != target.FilegroupClass {
			return target.Label{}, configErr(ref, reasonShape, fmt.Errorf("got %s rule", tgt.RuleClass))
		}
		srcs, err := filegroupSrcs(tgt)
		if err != nil {
			return target.Label{}, configErr(ref, reasonBadSrcs, err)
		}
		if len(srcs) != 1 {
			return target.Label{}, configErr(ref, reasonOneFile, fmt.Errorf("got %d", len(srcs)))
		}
		return srcs[0], nil
	case target.KindPackageGroup:
		return target.Label{}, configErr(ref, reasonShape, fmt.Errorf("got %s", tgt.Kind))
	default:
		return target.Label{}, configErr(ref, reasonShape, tgt.Kind.Validate())
	}
}

// Resolve resolves ref and fetches the resulting file from the workspace.
// The fetcher is called exactly once on success of the reference check.
func Resolve(ctx context.Context, lookup target.Resolver, fetch target.Fetcher, ref target.Label, cacheDir types.FilesystemPath) (*Resolved, error) {
	file, err := ResolveReference(ctx, lookup, ref)
	if err != nil {
		return nil, err
	}
	if fetch == nil {
		return nil, configErr(ref, reasonNoFetcher, nil)
	}

	archive, err := fetch.FetchFile(ctx, file)
	if errors.Is(err, target.ErrNotFile) {
		return nil, configErr(ref, reasonNotFile, err)
	}
	if err != nil {
		return nil, configErr(ref, "", &MaterializationError{Label: file, Op: "fetch", Cause: err})
	}

	return &Resolved{
		Requested: ref,
		Label:     file,
		Archive:   archive,
		CacheDir:  cacheDir,
	}, nil
}

// filegroupSrcs converts the raw srcs attribute into labels, checking the
// shape of every element instead of assuming it.
func filegroupSrcs(tgt target.Target) ([]target.Label, error) {
	raw, ok := tgt.Attrs[target.SrcsAttr]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case []target.Label:
		return v, nil
	case []string:
		out := make([]target.Label, 0, len(v))
		for i, s := range v {
			l, err := target.ParseRelative(tgt.Label, s)
			if err != nil {
				return nil, fmt.Errorf("srcs[%d]: %w", i, err)
			}
			out = append(out, l)
		}
		return out, nil
	case []any:
		out := make([]target.Label, 0, len(v))
		for i, elem := range v {
			switch e := elem.(type) {
			case target.Label:
				out = append(out, e)
			case string:
				l, err := target.ParseRelative(tgt.Label, e)
				if err != nil {
					return nil, fmt.Errorf("srcs[%d]: %w", i, err)
				}
				out = append(out, l)
			default:
				return nil, fmt.Errorf("srcs[%d]: unsupported element type %T", i, elem)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("srcs: expected a list, got %T", raw)
	}
}
