package pyrt

import (
	"context"
	"errors"

	"github.com/mvp-joe/tagsgen/internal/sanitize"
)

var (
	// ErrRuntime indicates the interpreter could not be started or could not
	// describe itself. It is not specific to the unit being inspected.
	ErrRuntime = errors.New("python runtime failure")

	// ErrUnitCrashed indicates the child interpreter started but died while
	// loading the unit, before it could report.
	ErrUnitCrashed = errors.New("unit crashed the interpreter")

	// ErrMalformedReport indicates the child finished but its report for the
	// unit could not be decoded.
	ErrMalformedReport = errors.New("malformed unit report")
)

// Runtime loads Python units in a child interpreter and reports their members.
type Runtime interface {
	// Describe reports the interpreter identity and install locations.
	Describe(ctx context.Context) (*Info, error)

	// Inspect imports one unit and reports its members. Import failures are
	// reported in the returned Report, not as an error.
	Inspect(ctx context.Context, target Target) (*Report, error)

	// Close releases any files the runtime extracted.
	Close() error
}

// Info identifies an interpreter installation.
type Info struct {
	Implementation string `json:"implementation"`
	Version        string `json:"version"`
	Executable     string `json:"executable"`
	Prefix         string `json:"prefix"`
	BasePrefix     string `json:"base_prefix"`
	ExecPrefix     string `json:"exec_prefix"`
	Stdlib         string `json:"stdlib"`
}

// Identity returns a short interpreter label, e.g. "CPython 3.12.1".
func (i *Info) Identity() string {
	impl := i.Implementation
	if impl == "" {
		impl = "Python"
	}
	return impl + " " + i.Version
}

// Prefixes returns the distinct install prefixes of the interpreter.
func (i *Info) Prefixes() []string {
	return []string{i.Prefix, i.BasePrefix, i.ExecPrefix}
}

// Target names the unit to load: a module name, and optionally the file to
// load it from when the unit is not importable by name.
type Target struct {
	Module string
	Path   string
}

// Status is the outcome of loading a unit.
type Status string

const (
	StatusOK         Status = "ok"
	StatusDeprecated Status = "deprecated"
	StatusError      Status = "error"
)

// Report is the result of inspecting one unit.
type Report struct {
	Module    string   `json:"module"`
	Origin    string   `json:"origin"` // source file, when one exists
	Status    Status   `json:"status"`
	ErrorType string   `json:"error_type,omitempty"`
	Error     string   `json:"error,omitempty"`
	Members   []Member `json:"members,omitempty"`

	// Stderr holds the tail of what the unit printed while loading.
	Stderr string `json:"-"`
}

// MemberKind classifies an enumerated member.
type MemberKind string

const (
	MemberFunction MemberKind = "function"
	MemberClass    MemberKind = "class"
	MemberProperty MemberKind = "property"
	MemberVariable MemberKind = "variable"
	MemberModule   MemberKind = "module"
)

// Binding tells how a class attribute receives its first argument.
type Binding string

const (
	BindingInstance Binding = "instance"
	BindingClass    Binding = "class"
	BindingStatic   Binding = "static"
)

// Member is one attribute of a module or class.
type Member struct {
	Name           string           `json:"name"`
	Kind           MemberKind       `json:"kind"`
	Module         string           `json:"module,omitempty"` // defining module of functions and classes
	Qualname       string           `json:"qualname,omitempty"`
	Params         []sanitize.Param `json:"params,omitempty"`
	SignatureError string           `json:"signature_error,omitempty"`
	Returns        string           `json:"returns,omitempty"`
	Binding        Binding          `json:"binding,omitempty"`
	Bases          []string         `json:"bases,omitempty"`
	ValueType      string           `json:"value_type,omitempty"`
	Members        []Member         `json:"members,omitempty"`
	Error          string           `json:"error,omitempty"` // describing this member failed
}

// HasSignature reports whether the runtime derived a parameter list.
func (m *Member) HasSignature() bool {
	return m.SignatureError == "" && (m.Kind == MemberFunction || m.Kind == MemberClass)
}
