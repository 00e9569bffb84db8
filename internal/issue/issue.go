// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	RootfsShapeInvalidId Id = iota + 1
	RootfsLookupFailedId
	RootfsFetchFailedId
	RootfsExtractFailedId
	RootfsCacheUnusableId
	ConfigLoadFailedId
	WorkspaceNotFoundId
	PlatformUnsupportedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	rootfsShapeInvalidIssue = &Issue{
		id: RootfsShapeInvalidId,
		mdMsg: `
# The sandbox rootfs is not a single file!

` + "`sandbox.rootfs`" + ` must name either a file target or a filegroup with
exactly one file in its ` + "`srcs`" + `.

## Things you can try:
- Point the option at the archive itself:
~~~cue
sandbox: rootfs: "//images:rootfs.tar.gz"
~~~
- Or reduce the filegroup to one member:
~~~cue
targets: rootfs: {
	kind: "filegroup"
	srcs: ["rootfs.tar.gz"]
}
~~~`,
		docLinks: []HttpLink{"https://bazel.build/reference/command-line-reference#flag--experimental_sandbox_rootfs"},
	}

	rootfsLookupFailedIssue = &Issue{
		id: RootfsLookupFailedId,
		mdMsg: `
# The sandbox rootfs target could not be found!

Looking up the configured label failed, so no sandbox was set up.

## Things you can try:
- Check the spelling of the label and of its package directory
- Declare the target in the package's TARGETS.cue, or make sure the file exists
- For @repo labels, map the repository under ` + "`workspace.repositories`",
	}

	rootfsFetchFailedIssue = &Issue{
		id: RootfsFetchFailedId,
		mdMsg: `
# The sandbox rootfs archive could not be fetched!

The label resolved to a file, but the file is not readable on local disk.

## Things you can try:
- Verify the file exists and is a regular file
- Check the file permissions
- Re-run with --verbose to see the full error chain`,
	}

	rootfsExtractFailedIssue = &Issue{
		id: RootfsExtractFailedId,
		mdMsg: `
# The sandbox rootfs archive could not be extracted!

Archives must be tar streams, optionally compressed with gzip or zstd.
Entries with absolute paths, ".." components or that write through
symlinks are rejected.

## Things you can try:
- Inspect the archive:
~~~
$ tar -tvf rootfs.tar.gz
~~~
- Rebuild the image with relative member names`,
	}

	rootfsCacheUnusableIssue = &Issue{
		id: RootfsCacheUnusableId,
		mdMsg: `
# The rootfs cache directory is unusable!

## Things you can try:
- Set ` + "`sandbox.rootfs_cache_path`" + ` to a writable directory
- Or unset it to use ` + "`<output_base>/rootfs`",
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

There was an error loading your sandboxctx configuration file.

## Things you can try:
- Check the CUE syntax of your config file
- Show the effective configuration:
~~~
$ sandboxctx config show
~~~
- Write a fresh default configuration:
~~~
$ sandboxctx config init
~~~`,
	}

	workspaceNotFoundIssue = &Issue{
		id: WorkspaceNotFoundId,
		mdMsg: `
# Workspace not found!

The workspace root must be an existing directory.

## Things you can try:
- Pass --workspace /path/to/workspace
- Set ` + "`workspace.root`" + ` in your config file`,
	}

	platformUnsupportedIssue = &Issue{
		id: PlatformUnsupportedId,
		mdMsg: `
# No sandbox on this platform!

Sandboxed execution is available on Linux and macOS only. Actions run
unsandboxed here.`,
	}

	issues = map[Id]*Issue{
		rootfsShapeInvalidIssue.Id():  rootfsShapeInvalidIssue,
		rootfsLookupFailedIssue.Id():  rootfsLookupFailedIssue,
		rootfsFetchFailedIssue.Id():   rootfsFetchFailedIssue,
		rootfsExtractFailedIssue.Id(): rootfsExtractFailedIssue,
		rootfsCacheUnusableIssue.Id(): rootfsCacheUnusableIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		workspaceNotFoundIssue.Id():   workspaceNotFoundIssue,
		platformUnsupportedIssue.Id(): platformUnsupportedIssue,
	}
)

// Values returns the catalog ordered by id.
func Values() []*Issue {
	values := maps.Values(issues)
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
