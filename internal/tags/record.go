// Package tags defines the tag record and its tagmanager line encoding.
//
// A tag file is a short header block followed by one record per line. Each
// record line starts with the symbol name; every further field is introduced
// by a control byte from the reserved range 200..214 and runs until the next
// control byte or the end of the line.
package tags

import (
	"strconv"
	"strings"
)

// Kind is the index's tag type. Values are bit flags so that the index can
// build kind masks; a record carries exactly one of them.
type Kind uint32

const (
	KindUndef        Kind = 0
	KindClass        Kind = 1
	KindEnum         Kind = 2
	KindEnumerator   Kind = 4
	KindField        Kind = 8
	KindFunction     Kind = 16
	KindInterface    Kind = 32
	KindMember       Kind = 64
	KindMethod       Kind = 128
	KindNamespace    Kind = 256
	KindPackage      Kind = 512
	KindPrototype    Kind = 1024
	KindStruct       Kind = 2048
	KindTypedef      Kind = 4096
	KindUnion        Kind = 8192
	KindVariable     Kind = 16384
	KindExternVar    Kind = 32768
	KindMacro        Kind = 65536
	KindMacroWithArg Kind = 131072
	KindLocalVar     Kind = 262144
	KindOther        Kind = 524288
	KindInclude      Kind = 1048576
)

// KindConstant is a namespace-level constant. The index has no dedicated
// constant kind and lists named constants as macros.
const KindConstant = KindMacro

var kindLabels = map[Kind]string{
	KindUndef:        "undef",
	KindClass:        "class",
	KindEnum:         "enum",
	KindEnumerator:   "enumerator",
	KindField:        "field",
	KindFunction:     "function",
	KindInterface:    "interface",
	KindMember:       "member",
	KindMethod:       "method",
	KindNamespace:    "namespace",
	KindPackage:      "package",
	KindPrototype:    "prototype",
	KindStruct:       "struct",
	KindTypedef:      "typedef",
	KindUnion:        "union",
	KindVariable:     "variable",
	KindExternVar:    "externvar",
	KindMacro:        "macro",
	KindMacroWithArg: "macro_arg",
	KindLocalVar:     "local",
	KindOther:        "other",
	KindInclude:      "include",
}

// String returns the human label of k, or "UNKNOWN" for values outside the table.
func (k Kind) String() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return "UNKNOWN"
}

// Known reports whether k is one of the index's tag types.
func (k Kind) Known() bool {
	_, ok := kindLabels[k]
	return ok
}

// Origin records which extraction path produced a record. It is kept for
// diagnostics only and is never written to a tag file.
type Origin uint8

const (
	OriginUnknown Origin = iota
	OriginReflective
	OriginFallback
	OriginSyntax
	OriginDocImport
)

func (o Origin) String() string {
	switch o {
	case OriginReflective:
		return "reflective"
	case OriginFallback:
		return "fallback"
	case OriginSyntax:
		return "syntax"
	case OriginDocImport:
		return "docimport"
	default:
		return "unknown"
	}
}

// TypeRef names the declared type of a symbol's value or return.
type TypeRef struct {
	Kind string // one of the TypeRef* kinds
	Name string
}

// TypeRef kinds understood by the index.
const (
	TypeRefTypename = "typename"
	TypeRefClass    = "class"
	TypeRefStruct   = "struct"
	TypeRefUnion    = "union"
	TypeRefEnum     = "enum"
)

func knownTypeRefKind(kind string) bool {
	switch kind {
	case TypeRefTypename, TypeRefClass, TypeRefStruct, TypeRefUnion, TypeRefEnum:
		return true
	}
	return false
}

// Record is one symbol occurrence.
//
// Signature, Scope and TypeRef are optional. A nil Signature means the symbol
// is not callable or its parameters could not be derived; a non-nil empty
// string is never produced by the extractors, which always render at least "()".
type Record struct {
	Name      string
	Kind      Kind
	Signature *string
	Scope     string
	TypeRef   *TypeRef
	Origin    Origin
}

// Sig returns a pointer to s, for building records with a signature.
func Sig(s string) *string {
	return &s
}

// SignatureOr returns the record's signature or def when absent.
func (r Record) SignatureOr(def string) string {
	if r.Signature == nil {
		return def
	}
	return *r.Signature
}

// Key identifies a record for deduplication.
type Key struct {
	Scope string
	Name  string
	Kind  Kind
}

// Key returns the deduplication key of r.
func (r Record) Key() Key {
	return Key{Scope: r.Scope, Name: r.Name, Kind: r.Kind}
}

// Less orders records by name, then scope, then kind.
func Less(a, b Record) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if a.Scope != b.Scope {
		return a.Scope < b.Scope
	}
	return a.Kind < b.Kind
}

// IsPrivate reports whether name follows the underscore convention for
// non-public symbols: a leading or trailing underscore.
func IsPrivate(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasSuffix(name, "_")
}

// String renders r for log lines.
func (r Record) String() string {
	var b strings.Builder
	if r.Scope != "" {
		b.WriteString(r.Scope)
		b.WriteString("::")
	}
	b.WriteString(r.Name)
	if r.Signature != nil {
		b.WriteString(*r.Signature)
	}
	b.WriteString(" [")
	b.WriteString(r.Kind.String())
	if !r.Kind.Known() {
		b.WriteString(" ")
		b.WriteString(strconv.FormatUint(uint64(r.Kind), 10))
	}
	b.WriteString("]")
	return b.String()
}
