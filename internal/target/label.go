// SPDX-License-Identifier: MPL-2.0

package target

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidLabel is the sentinel error wrapped by InvalidLabelError.
var ErrInvalidLabel = errors.New("invalid label")

type (
	// Label identifies a target. The zero value is the "no label" value.
	Label struct {
		// Repo is the external repository name without the leading "@".
		// Empty means the main workspace.
		Repo string
		// Pkg is the slash-separated package path relative to the repository root.
		Pkg string
		// Name is the target name within the package.
		Name string
	}

	// InvalidLabelError is returned when a label string cannot be parsed.
	InvalidLabelError struct {
		Value  string
		Reason string
	}
)

// ParseLabel parses an absolute label of the form "[@repo]//pkg[:name]".
// When the name is omitted it defaults to the last package component.
func ParseLabel(s string) (Label, error) {
	raw := s
	s = strings.TrimSpace(s)

	var repo string
	if strings.HasPrefix(s, "@") {
		idx := strings.Index(s, "//")
		if idx < 0 {
			return Label{}, &InvalidLabelError{Value: raw, Reason: "missing \"//\" after repository"}
		}
		repo = s[1:idx]
		if repo == "" {
			return Label{}, &InvalidLabelError{Value: raw, Reason: "empty repository name"}
		}
		s = s[idx:]
	}

	if !strings.HasPrefix(s, "//") {
		return Label{}, &InvalidLabelError{Value: raw, Reason: "must start with \"//\" or \"@repo//\""}
	}
	s = s[2:]

	pkg, name, hasColon := strings.Cut(s, ":")
	if !hasColon {
		if pkg == "" {
			return Label{}, &InvalidLabelError{Value: raw, Reason: "missing target name"}
		}
		name = path.Base(pkg)
	}

	l := Label{Repo: repo, Pkg: pkg, Name: name}
	if err := l.validate(raw); err != nil {
		return Label{}, err
	}
	return l, nil
}

// MustParseLabel is ParseLabel for literals; it panics on error.
func MustParseLabel(s string) Label {
	l, err := ParseLabel(s)
	if err != nil {
		panic(err)
	}
	return l
}

// ParseRelative parses s relative to the package of base. Absolute labels
// are parsed as-is; ":name" and "name" refer to targets in base's package.
func ParseRelative(base Label, s string) (Label, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "@") {
		return ParseLabel(trimmed)
	}
	name := strings.TrimPrefix(trimmed, ":")
	if name == "" {
		return Label{}, &InvalidLabelError{Value: s, Reason: "missing target name"}
	}
	l := Label{Repo: base.Repo, Pkg: base.Pkg, Name: name}
	if err := l.validate(s); err != nil {
		return Label{}, err
	}
	return l, nil
}

// IsZero reports whether l is the zero "no label" value.
func (l Label) IsZero() bool {
	return l == Label{}
}

// String renders the canonical form "[@repo]//pkg:name".
func (l Label) String() string {
	if l.IsZero() {
		return ""
	}
	var b strings.Builder
	if l.Repo != "" {
		b.WriteString("@")
		b.WriteString(l.Repo)
	}
	b.WriteString("//")
	b.WriteString(l.Pkg)
	b.WriteString(":")
	b.WriteString(l.Name)
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input yields
// the zero label.
func (l *Label) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*l = Label{}
		return nil
	}
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l Label) validate(raw string) error {
	if l.Name == "" {
		return &InvalidLabelError{Value: raw, Reason: "missing target name"}
	}
	if strings.HasPrefix(l.Pkg, "/") || strings.HasSuffix(l.Pkg, "/") {
		return &InvalidLabelError{Value: raw, Reason: "package must not start or end with \"/\""}
	}
	for _, seg := range strings.Split(l.Pkg, "/") {
		if seg == ".." || seg == "." {
			return &InvalidLabelError{Value: raw, Reason: "package must not contain \".\" or \"..\" segments"}
		}
	}
	for _, seg := range strings.Split(l.Name, "/") {
		if seg == "" || seg == ".." || seg == "." {
			return &InvalidLabelError{Value: raw, Reason: "invalid target name"}
		}
	}
	if strings.ContainsAny(l.Name, ":@") {
		return &InvalidLabelError{Value: raw, Reason: "target name must not contain ':' or '@'"}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidLabelError) Error() string {
	return fmt.Sprintf("invalid label %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidLabel for errors.Is() compatibility.
func (e *InvalidLabelError) Unwrap() error { return ErrInvalidLabel }
