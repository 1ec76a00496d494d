// Package extract turns Python units into tag records.
//
// Three strategies share one interface: Reflective loads the unit in a child
// interpreter and reads its live members, Fallback scans the source with a
// single line pattern, and Syntax walks a tree-sitter parse of the source.
// Callers try Reflective first and degrade to one of the textual strategies
// when it reports ErrLoad or ErrNoMembers.
package extract

import (
	"context"
	"errors"

	"github.com/mvp-joe/tagsgen/internal/tags"
)

var (
	// Skip-unit errors: the unit is treated as absent.
	ErrEntryPoint = errors.New("unit is a runnable entry point")
	ErrIgnored    = errors.New("unit is on the ignore list")
	ErrDeprecated = errors.New("unit is deprecated")

	// Degrade errors: a textual strategy should be tried on the unit's source.
	ErrLoad      = errors.New("unit failed to load")
	ErrNoMembers = errors.New("unit has no recordable members")

	// ErrNoSource is returned by textual strategies when the unit has no
	// readable source file.
	ErrNoSource = errors.New("unit has no source file")
)

// IsSkip reports whether err means the unit should be skipped without fallback.
func IsSkip(err error) bool {
	return errors.Is(err, ErrEntryPoint) || errors.Is(err, ErrIgnored) || errors.Is(err, ErrDeprecated)
}

// ShouldFallback reports whether err means a textual strategy should be tried.
func ShouldFallback(err error) bool {
	return errors.Is(err, ErrLoad) || errors.Is(err, ErrNoMembers)
}

// Unit is one loadable module: a dotted module name and, when known, the
// source file it is loaded from.
type Unit struct {
	Name string
	Path string
}

func (u Unit) String() string {
	if u.Path == "" {
		return u.Name
	}
	return u.Name + " (" + u.Path + ")"
}

// Skipped is a member that was enumerated but not recorded.
type Skipped struct {
	Name   string
	Reason string
}

// Result holds the records extracted from one unit.
//
// Reflective returns a Result alongside ErrLoad and ErrNoMembers so that the
// caller learns the unit's resolved source path.
type Result struct {
	Unit    Unit
	Records []tags.Record
	Skipped []Skipped

	// Partial is set when extraction stopped before the end of the unit.
	// Records still holds everything read up to that point.
	Partial error
}

func (r *Result) add(rec tags.Record) {
	r.Records = append(r.Records, rec)
}

func (r *Result) skip(name, reason string) {
	r.Skipped = append(r.Skipped, Skipped{Name: name, Reason: reason})
}

// Extractor produces tag records for one unit.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, unit Unit) (*Result, error)
}
