// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sahilm/fuzzy"

	"github.com/sandboxctx/sandboxctx/internal/target"
	"github.com/sandboxctx/sandboxctx/pkg/cueutil"
	"github.com/sandboxctx/sandboxctx/pkg/fspath"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

// TargetsFileName is the per-package target declaration file.
const TargetsFileName = "TARGETS.cue"

//go:embed targets_schema.cue
var targetsSchema []byte

var (
	_ target.Resolver = (*Workspace)(nil)
	_ target.Fetcher  = (*Workspace)(nil)
)

type (
	// Workspace resolves labels against directories on local disk. It is safe
	// for concurrent use.
	Workspace struct {
		root   types.FilesystemPath
		repos  map[string]types.FilesystemPath
		logger *slog.Logger

		mu       sync.Mutex
		packages map[string]*packageDecl
	}

	// Option configures a Workspace.
	Option func(*Workspace)

	targetsFile struct {
		Targets map[string]targetDecl `json:"targets"`
	}

	targetDecl struct {
		Kind      string   `json:"kind"`
		RuleClass string   `json:"rule_class"`
		Srcs      []string `json:"srcs"`
	}

	packageDecl struct {
		dir     types.FilesystemPath
		targets map[string]targetDecl
	}
)

// WithRepository maps the external repository name to dir.
func WithRepository(name string, dir types.FilesystemPath) Option {
	return func(w *Workspace) {
		w.repos[name] = dir
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) {
		if l != nil {
			w.logger = l
		}
	}
}

// New returns a Workspace rooted at root.
func New(root types.FilesystemPath, opts ...Option) (*Workspace, error) {
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	abs, err := fspath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	w := &Workspace{
		root:     abs,
		repos:    make(map[string]types.FilesystemPath),
		logger:   slog.Default(),
		packages: make(map[string]*packageDecl),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Root returns the absolute main workspace directory.
func (w *Workspace) Root() types.FilesystemPath {
	return w.root
}

// Lookup implements target.Resolver.
func (w *Workspace) Lookup(ctx context.Context, l target.Label) (target.Target, error) {
	if err := ctx.Err(); err != nil {
		return target.Target{}, fmt.Errorf("%w: %w", target.ErrInterrupted, err)
	}

	pkg, err := w.loadPackage(l)
	if err != nil {
		return target.Target{}, err
	}

	if decl, ok := pkg.targets[l.Name]; ok {
		return declToTarget(l, pkg.dir, decl)
	}

	info, err := os.Stat(fspath.JoinStr(pkg.dir, filepath.FromSlash(l.Name)).String())
	if err == nil && info.Mode().IsRegular() {
		return target.Target{Label: l, Kind: target.KindFile}, nil
	}
	return target.Target{}, &target.NotFoundError{Label: l, Reason: notFoundReason(l, pkg)}
}

// notFoundReason names the closest declared target, if any, as a hint.
func notFoundReason(l target.Label, pkg *packageDecl) string {
	reason := "not declared in " + TargetsFileName + " and no such file"
	names := slices.Sorted(maps.Keys(pkg.targets))
	if matches := fuzzy.Find(l.Name, names); len(matches) > 0 {
		reason += fmt.Sprintf(" (did you mean ':%s'?)", matches[0].Str)
	}
	return reason
}

// FetchFile implements target.Fetcher. It returns the absolute path of the
// file a file label names.
func (w *Workspace) FetchFile(ctx context.Context, l target.Label) (types.FilesystemPath, error) {
	tgt, err := w.Lookup(ctx, l)
	if err != nil {
		return "", err
	}
	if tgt.Kind != target.KindFile {
		return "", fmt.Errorf("fetch: %w", &target.NotFileError{Label: l, Kind: tgt.Kind})
	}

	root, err := w.repoRoot(l)
	if err != nil {
		return "", err
	}
	p := fspath.JoinStr(root, filepath.FromSlash(l.Pkg), filepath.FromSlash(l.Name))
	if !fspath.Within(root, p) {
		return "", fmt.Errorf("fetch '%s': path escapes repository root", l)
	}

	info, err := os.Stat(p.String())
	if err != nil {
		return "", fmt.Errorf("fetch '%s': %w", l, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("fetch '%s': %s is not a regular file", l, p)
	}

	w.logger.Debug("fetched workspace file", "label", l.String(), "path", p.String())
	return p, nil
}

func (w *Workspace) repoRoot(l target.Label) (types.FilesystemPath, error) {
	if l.Repo == "" {
		return w.root, nil
	}
	root, ok := w.repos[l.Repo]
	if !ok {
		return "", &target.NotFoundError{Label: l, Reason: fmt.Sprintf("unknown repository '@%s'", l.Repo)}
	}
	return root, nil
}

func (w *Workspace) loadPackage(l target.Label) (*packageDecl, error) {
	root, err := w.repoRoot(l)
	if err != nil {
		return nil, err
	}
	dir := fspath.JoinStr(root, filepath.FromSlash(l.Pkg))
	key := dir.String()

	w.mu.Lock()
	defer w.mu.Unlock()

	if pkg, ok := w.packages[key]; ok {
		return pkg, nil
	}

	info, err := os.Stat(key)
	if err != nil || !info.IsDir() {
		return nil, &target.NotFoundError{Label: l, Reason: fmt.Sprintf("no such package '%s'", l.Pkg)}
	}

	pkg := &packageDecl{dir: dir, targets: map[string]targetDecl{}}
	declPath := fspath.JoinStr(dir, TargetsFileName)
	data, err := os.ReadFile(declPath.String())
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", declPath, err)
	default:
		parsed, err := cueutil.ParseAndDecode[targetsFile](targetsSchema, data, "#Targets",
			cueutil.WithFilename(declPath.String()))
		if err != nil {
			return nil, err
		}
		if parsed.Targets != nil {
			pkg.targets = parsed.Targets
		}
	}

	w.packages[key] = pkg
	return pkg, nil
}

func declToTarget(l target.Label, dir types.FilesystemPath, decl targetDecl) (target.Target, error) {
	switch decl.Kind {
	case "file":
		return target.Target{Label: l, Kind: target.KindFile}, nil
	case "package_group":
		return target.Target{Label: l, Kind: target.KindPackageGroup}, nil
	case "filegroup":
		decl.RuleClass = target.FilegroupClass
	}

	srcs := make([]any, 0, len(decl.Srcs))
	for _, s := range decl.Srcs {
		if !isGlob(s) {
			srcs = append(srcs, s)
			continue
		}
		matches, err := expandGlob(dir, s)
		if err != nil {
			return target.Target{}, fmt.Errorf("expand srcs of '%s': %w", l, err)
		}
		for _, m := range matches {
			srcs = append(srcs, m)
		}
	}
	return target.Target{
		Label:     l,
		Kind:      target.KindRule,
		RuleClass: decl.RuleClass,
		Attrs:     map[string]any{target.SrcsAttr: srcs},
	}, nil
}

// isGlob reports whether a srcs entry is a package-relative glob pattern.
// Label references are never expanded.
func isGlob(s string) bool {
	if strings.HasPrefix(s, "//") || strings.HasPrefix(s, "@") || strings.HasPrefix(s, ":") {
		return false
	}
	return strings.ContainsAny(s, "*?[{")
}

// expandGlob matches pattern against the regular files below dir, in
// lexical order. Declaration files never match.
func expandGlob(dir types.FilesystemPath, pattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir.String()), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", pattern, err)
	}
	matches = slices.DeleteFunc(matches, func(m string) bool {
		return path.Base(m) == TargetsFileName
	})
	slices.Sort(matches)
	return matches, nil
}
