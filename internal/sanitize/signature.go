// Package sanitize renders callable parameter lists as stable, portable
// signature strings.
//
// Default values come from a live interpreter, so their textual forms can
// leak the environment of the machine that generated the tags: environment
// mappings, install paths, object addresses. Sanitizer rewrites those before
// they reach a tag file.
package sanitize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// ParamKind mirrors the parameter kinds of the runtime's signature model.
type ParamKind string

const (
	PositionalOnly    ParamKind = "POSITIONAL_ONLY"
	PositionalOrKeywd ParamKind = "POSITIONAL_OR_KEYWORD"
	VarPositional     ParamKind = "VAR_POSITIONAL"
	KeywordOnly       ParamKind = "KEYWORD_ONLY"
	VarKeyword        ParamKind = "VAR_KEYWORD"
)

// Param is one parameter of a callable.
type Param struct {
	Name       string    `json:"name"`
	Kind       ParamKind `json:"kind"`
	Annotation string    `json:"annotation,omitempty"`
	Default    *Value    `json:"default,omitempty"`
}

// Value describes a default value as observed by the runtime.
type Value struct {
	Type       string `json:"type"`                  // qualified type name
	Repr       string `json:"repr"`                  // textual form
	Name       string `json:"name,omitempty"`        // __name__ of functions, classes, modules
	Primitive  bool   `json:"primitive,omitempty"`   // int, float, complex, bool, None
	String     bool   `json:"string,omitempty"`      // str or bytes
	Mapping    bool   `json:"mapping,omitempty"`     // dict-like
	Len        int    `json:"len,omitempty"`         // entries, for mappings
	ReprFailed bool   `json:"repr_failed,omitempty"` // repr() raised
}

const (
	// PortableExecutable replaces the generating interpreter's path.
	PortableExecutable = "/nonexistent/bin/python3"

	// PortablePrefix replaces the generating interpreter's install prefix.
	PortablePrefix = "/nonexistent"
)

var (
	objectAddress  = regexp.MustCompile(`<([^<>]*?) object at 0x[0-9a-fA-F]+>`)
	trailerAddress = regexp.MustCompile(`\s+at 0x[0-9a-fA-F]+`)
	whitespaceRun  = regexp.MustCompile(`\s*\n\s*`)
)

// Sanitizer renders signatures for one runtime installation.
type Sanitizer struct {
	executable string
	prefixes   []string
}

// New returns a Sanitizer that hides the given interpreter executable and
// install prefixes. Empty values are ignored.
func New(executable string, prefixes ...string) *Sanitizer {
	s := &Sanitizer{executable: executable}
	seen := make(map[string]bool)
	for _, p := range prefixes {
		p = strings.TrimRight(p, "/\\")
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		s.prefixes = append(s.prefixes, p)
	}
	// longest first, so a nested prefix never leaves part of an outer one behind
	sort.Slice(s.prefixes, func(i, j int) bool { return len(s.prefixes[i]) > len(s.prefixes[j]) })
	return s
}

// Options controls signature rendering.
type Options struct {
	// DropBound removes the leading positional parameter that receives the
	// instance or class on method calls.
	DropBound bool
}

// Signature renders params the way the runtime prints signatures, with
// every default value sanitized. It never panics; ok is false when no
// signature could be derived.
func (s *Sanitizer) Signature(params []Param, opts Options) (sig string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			sig, ok = "", false
		}
	}()

	if opts.DropBound && len(params) > 0 {
		switch params[0].Kind {
		case PositionalOnly, PositionalOrKeywd:
			params = params[1:]
		}
	}

	parts := make([]string, 0, len(params)+2)
	sawVarPositional := false
	for i, p := range params {
		if p.Name == "" {
			return "", false
		}
		if p.Kind == KeywordOnly && !sawVarPositional {
			parts = append(parts, "*")
			sawVarPositional = true
		}

		var part string
		switch p.Kind {
		case VarPositional:
			part = "*" + p.Name
			sawVarPositional = true
		case VarKeyword:
			part = "**" + p.Name
		default:
			part = p.Name
		}

		if p.Annotation != "" {
			part += ": " + p.Annotation
		}
		if p.Default != nil {
			if p.Annotation != "" {
				part += " = " + s.Default(*p.Default)
			} else {
				part += "=" + s.Default(*p.Default)
			}
		}
		parts = append(parts, part)

		if p.Kind == PositionalOnly && (i+1 == len(params) || params[i+1].Kind != PositionalOnly) {
			parts = append(parts, "/")
		}
	}

	return ASCII("(" + strings.Join(parts, ", ") + ")"), true
}

// Default renders one default value.
func (s *Sanitizer) Default(v Value) string {
	switch {
	case v.Mapping && v.Len > 0:
		return fmt.Sprintf("<stripped %s>", v.Type)
	case v.Primitive:
		return v.Repr
	case v.ReprFailed:
		return fmt.Sprintf("<%s>", v.Type)
	case v.Name != "" && !v.String:
		return v.Name
	}
	return stripAddresses(s.redactPaths(oneLine(v.Repr)))
}

func (s *Sanitizer) redactPaths(text string) string {
	if s.executable != "" {
		text = strings.ReplaceAll(text, s.executable, PortableExecutable)
	}
	for _, p := range s.prefixes {
		text = strings.ReplaceAll(text, p, PortablePrefix)
	}
	return text
}

func stripAddresses(text string) string {
	text = objectAddress.ReplaceAllString(text, "<$1 object>")
	return trailerAddress.ReplaceAllString(text, "")
}

func oneLine(text string) string {
	return whitespaceRun.ReplaceAllString(text, " ")
}

// ASCII escapes non-ASCII runes so that no byte of the result can collide
// with the tag format's control range.
func ASCII(text string) string {
	for i := 0; i < len(text); i++ {
		if text[i] >= utf8.RuneSelf {
			return escapeRunes(text)
		}
	}
	return text
}

func escapeRunes(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r < utf8.RuneSelf:
			b.WriteRune(r)
		case r <= 0xFFFF:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			fmt.Fprintf(&b, `\U%08x`, r)
		}
	}
	return b.String()
}
