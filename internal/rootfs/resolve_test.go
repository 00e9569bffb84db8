// SPDX-License-Identifier: MPL-2.0

package rootfs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sandboxctx/sandboxctx/internal/target"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

type fakeWorkspace struct {
	targets map[string]target.Target
	lookups int
	fetched []target.Label
	fetchFn func(target.Label) (types.FilesystemPath, error)
}

func (w *fakeWorkspace) Lookup(ctx context.Context, l target.Label) (target.Target, error) {
	w.lookups++
	if err := ctx.Err(); err != nil {
		return target.Target{}, target.ErrInterrupted
	}
	tgt, ok := w.targets[l.String()]
	if !ok {
		return target.Target{}, &target.NotFoundError{Label: l}
	}
	return tgt, nil
}

func (w *fakeWorkspace) FetchFile(_ context.Context, l target.Label) (types.FilesystemPath, error) {
	w.fetched = append(w.fetched, l)
	if w.fetchFn != nil {
		return w.fetchFn(l)
	}
	return types.FilesystemPath("/ws/" + l.Pkg + "/" + l.Name), nil
}

func fileTarget(s string) target.Target {
	return target.Target{Label: target.MustParseLabel(s), Kind: target.KindFile}
}

func filegroup(s string, srcs any) target.Target {
	return target.Target{
		Label:     target.MustParseLabel(s),
		Kind:      target.KindRule,
		RuleClass: target.FilegroupClass,
		Attrs:     map[string]any{target.SrcsAttr: srcs},
	}
}

func TestResolveReference(t *testing.T) {
	t.Parallel()

	ws := &fakeWorkspace{targets: map[string]target.Target{
		"//img:rootfs.tar":  fileTarget("//img:rootfs.tar"),
		"//img:one":         filegroup("//img:one", []target.Label{target.MustParseLabel("//img:rootfs.tar")}),
		"//img:one_str":     filegroup("//img:one_str", []string{"rootfs.tar"}),
		"//img:one_any":     filegroup("//img:one_any", []any{":rootfs.tar"}),
		"//img:one_any_lbl": filegroup("//img:one_any_lbl", []any{target.MustParseLabel("//other:x.tar")}),
		"//img:none":        filegroup("//img:none", []target.Label{}),
		"//img:missing":     {Label: target.MustParseLabel("//img:missing"), Kind: target.KindRule, RuleClass: target.FilegroupClass},
		"//img:two":         filegroup("//img:two", []string{"a.tar", "b.tar"}),
		"//img:bad_elem":    filegroup("//img:bad_elem", []any{42}),
		"//img:bad_str":     filegroup("//img:bad_str", []any{"@//x"}),
		"//img:scalar":      filegroup("//img:scalar", "rootfs.tar"),
		"//img:genrule":     {Label: target.MustParseLabel("//img:genrule"), Kind: target.KindRule, RuleClass: "genrule"},
		"//img:group":       {Label: target.MustParseLabel("//img:group"), Kind: target.KindPackageGroup},
		"//img:weird":       {Label: target.MustParseLabel("//img:weird"), Kind: target.Kind("alias")},
	}}

	tests := []struct {
		ref        string
		want       string
		wantReason string
	}{
		{"//img:rootfs.tar", "//img:rootfs.tar", ""},
		{"//img:one", "//img:rootfs.tar", ""},
		{"//img:one_str", "//img:rootfs.tar", ""},
		{"//img:one_any", "//img:rootfs.tar", ""},
		{"//img:one_any_lbl", "//other:x.tar", ""},
		{"//img:none", "", reasonOneFile},
		{"//img:missing", "", reasonOneFile},
		{"//img:two", "", reasonOneFile},
		{"//img:bad_elem", "", reasonBadSrcs},
		{"//img:bad_str", "", reasonBadSrcs},
		{"//img:scalar", "", reasonBadSrcs},
		{"//img:genrule", "", reasonShape},
		{"//img:group", "", reasonShape},
		{"//img:weird", "", reasonShape},
		{"//img:nope", "", reasonLookup},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := ResolveReference(context.Background(), ws, target.MustParseLabel(tt.ref))
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("ResolveReference(%s) error = %v", tt.ref, err)
				}
				if got.String() != tt.want {
					t.Errorf("ResolveReference(%s) = %s, want %s", tt.ref, got, tt.want)
				}
				return
			}

			if err == nil {
				t.Fatalf("ResolveReference(%s) = %s, want error", tt.ref, got)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("error should match ErrConfiguration, got: %v", err)
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error should be *ConfigurationError, got %T", err)
			}
			if cfgErr.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", cfgErr.Reason, tt.wantReason)
			}
			if cfgErr.Option != OptionName {
				t.Errorf("Option = %q, want %q", cfgErr.Option, OptionName)
			}
			if !got.IsZero() {
				t.Errorf("ResolveReference should return the zero label on error, got %s", got)
			}
		})
	}
}

func TestResolveReference_ShapeMessage(t *testing.T) {
	t.Parallel()

	ws := &fakeWorkspace{targets: map[string]target.Target{
		"//img:genrule": {Label: target.MustParseLabel("//img:genrule"), Kind: target.KindRule, RuleClass: "genrule"},
	}}

	_, err := ResolveReference(context.Background(), ws, target.MustParseLabel("//img:genrule"))
	if err == nil || !strings.Contains(err.Error(), "sandbox_rootfs '//img:genrule': must either be a filegroup or a file target") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolveReference_NotFoundIsWrapped(t *testing.T) {
	t.Parallel()

	ws := &fakeWorkspace{}
	_, err := ResolveReference(context.Background(), ws, target.MustParseLabel("//nope:x"))
	if !errors.Is(err, ErrConfiguration) || !errors.Is(err, target.ErrNotFound) {
		t.Errorf("error should match ErrConfiguration and target.ErrNotFound, got: %v", err)
	}
	if ws.lookups != 1 {
		t.Errorf("lookups = %d, want 1 (no retries)", ws.lookups)
	}
}

func TestResolveReference_Interrupted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ws := &fakeWorkspace{targets: map[string]target.Target{"//img:a": fileTarget("//img:a")}}
	_, err := ResolveReference(ctx, ws, target.MustParseLabel("//img:a"))
	if !errors.Is(err, ErrConfiguration) || !errors.Is(err, target.ErrInterrupted) {
		t.Errorf("error should match ErrConfiguration and target.ErrInterrupted, got: %v", err)
	}
}

func TestResolveReference_CancelledWithOtherError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lookup := target.ResolverFunc(func(ctx context.Context, _ target.Label) (target.Target, error) {
		return target.Target{}, ctx.Err()
	})
	_, err := ResolveReference(ctx, lookup, target.MustParseLabel("//img:a"))
	if !errors.Is(err, target.ErrInterrupted) || !errors.Is(err, context.Canceled) {
		t.Errorf("error should match ErrInterrupted and context.Canceled, got: %v", err)
	}
}

func TestResolveReference_NilResolver(t *testing.T) {
	t.Parallel()

	_, err := ResolveReference(context.Background(), nil, target.MustParseLabel("//img:a"))
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	ws := &fakeWorkspace{targets: map[string]target.Target{
		"//img:rootfs.tar": fileTarget("//img:rootfs.tar"),
		"//img:group":      filegroup("//img:group", []string{"rootfs.tar"}),
	}}

	got, err := Resolve(context.Background(), ws, ws, target.MustParseLabel("//img:group"), "/cache")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Requested.String() != "//img:group" || got.Label.String() != "//img:rootfs.tar" {
		t.Errorf("Resolve() labels = %s -> %s", got.Requested, got.Label)
	}
	if got.Archive != "/ws/img/rootfs.tar" || got.CacheDir != "/cache" {
		t.Errorf("Resolve() = %+v", got)
	}
	if len(ws.fetched) != 1 || ws.fetched[0].String() != "//img:rootfs.tar" {
		t.Errorf("fetched = %v, want exactly [//img:rootfs.tar]", ws.fetched)
	}
}

func TestResolve_NoFetchOnInvalidShape(t *testing.T) {
	t.Parallel()

	ws := &fakeWorkspace{targets: map[string]target.Target{
		"//img:two": filegroup("//img:two", []string{"a", "b"}),
	}}

	if _, err := Resolve(context.Background(), ws, ws, target.MustParseLabel("//img:two"), "/cache"); err == nil {
		t.Fatal("Resolve() should fail for a two-member filegroup")
	}
	if len(ws.fetched) != 0 {
		t.Errorf("fetched = %v, want none", ws.fetched)
	}
}

func TestResolve_FetchFailure(t *testing.T) {
	t.Parallel()

	ioErr := errors.New("disk on fire")
	ws := &fakeWorkspace{
		targets: map[string]target.Target{"//img:a.tar": fileTarget("//img:a.tar")},
		fetchFn: func(target.Label) (types.FilesystemPath, error) { return "", ioErr },
	}

	_, err := Resolve(context.Background(), ws, ws, target.MustParseLabel("//img:a.tar"), "/cache")
	if !errors.Is(err, ErrConfiguration) || !errors.Is(err, ErrMaterialization) || !errors.Is(err, ioErr) {
		t.Errorf("error should match ErrConfiguration, ErrMaterialization and cause, got: %v", err)
	}
	var mErr *MaterializationError
	if !errors.As(err, &mErr) || mErr.Label.String() != "//img:a.tar" {
		t.Errorf("errors.As(*MaterializationError) = %+v", mErr)
	}
}

func TestResolve_MemberNotAFile(t *testing.T) {
	t.Parallel()

	inner := target.MustParseLabel("//img:inner")
	ws := &fakeWorkspace{
		targets: map[string]target.Target{
			"//img:outer": filegroup("//img:outer", []string{"inner"}),
		},
		fetchFn: func(l target.Label) (types.FilesystemPath, error) {
			return "", &target.NotFileError{Label: l, Kind: target.KindRule}
		},
	}

	_, err := Resolve(context.Background(), ws, ws, target.MustParseLabel("//img:outer"), "/cache")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Resolve() error = %v, want *ConfigurationError", err)
	}
	if cfgErr.Reason != reasonNotFile {
		t.Errorf("Reason = %q, want %q", cfgErr.Reason, reasonNotFile)
	}
	if errors.Is(err, ErrMaterialization) {
		t.Error("a non-file member is a shape error, not a materialization failure")
	}
	if !errors.Is(err, target.ErrNotFile) {
		t.Errorf("error should reach target.ErrNotFile, got: %v", err)
	}
	if len(ws.fetched) != 1 || ws.fetched[0] != inner {
		t.Errorf("fetched = %v, want [%s]", ws.fetched, inner)
	}
}

func TestResolve_NilFetcher(t *testing.T) {
	t.Parallel()

	ws := &fakeWorkspace{targets: map[string]target.Target{"//img:a.tar": fileTarget("//img:a.tar")}}
	if _, err := Resolve(context.Background(), ws, nil, target.MustParseLabel("//img:a.tar"), "/cache"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}
