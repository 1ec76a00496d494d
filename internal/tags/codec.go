package tags

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Field is a control byte introducing a field in a record line.
type Field byte

const (
	FieldName     Field = 200
	FieldLine     Field = 201
	FieldLocal    Field = 202
	FieldPos      Field = 203 // obsolete
	FieldType     Field = 204
	FieldArglist  Field = 205
	FieldScope    Field = 206
	FieldVarType  Field = 207
	FieldInherits Field = 208
	FieldTime     Field = 209 // obsolete
	FieldAccess   Field = 210
	FieldImpl     Field = 211
	FieldLang     Field = 212 // obsolete
	FieldInactive Field = 213 // obsolete
	FieldPointer  Field = 214
)

// Any byte at or above controlThreshold starts a new field.
const controlThreshold = byte(FieldName)

var (
	// ErrEmptyName is returned when encoding a record without a name.
	ErrEmptyName = errors.New("tag name is empty")

	// ErrReservedByte is returned when a field value contains a newline or a
	// byte from the reserved control range.
	ErrReservedByte = errors.New("field value contains a reserved byte")

	// ErrInvalidTypeRef is returned when a type reference has an unknown kind or no name.
	ErrInvalidTypeRef = errors.New("invalid type reference")

	// ErrMalformedLine is returned when a line cannot be decoded into a record.
	ErrMalformedLine = errors.New("malformed tag line")
)

// Encode renders r as one newline-terminated line: the name followed by the
// kind, signature, type reference and scope fields, each present field
// introduced by its control byte.
func Encode(r Record) ([]byte, error) {
	if r.Name == "" {
		return nil, ErrEmptyName
	}
	if err := checkValue("name", r.Name); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(r.Name)

	buf.WriteByte(byte(FieldType))
	buf.WriteString(strconv.FormatUint(uint64(r.Kind), 10))

	if r.Signature != nil {
		if err := checkValue("signature", *r.Signature); err != nil {
			return nil, err
		}
		buf.WriteByte(byte(FieldArglist))
		buf.WriteString(*r.Signature)
	}

	if r.TypeRef != nil {
		value, err := encodeTypeRef(*r.TypeRef)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(byte(FieldVarType))
		buf.WriteString(value)
	}

	if r.Scope != "" {
		if err := checkValue("scope", r.Scope); err != nil {
			return nil, err
		}
		buf.WriteByte(byte(FieldScope))
		buf.WriteString(r.Scope)
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func checkValue(field, value string) error {
	for i := 0; i < len(value); i++ {
		if value[i] >= controlThreshold || value[i] == '\n' {
			return fmt.Errorf("%w: %s byte %d at offset %d", ErrReservedByte, field, value[i], i)
		}
	}
	return nil
}

func encodeTypeRef(ref TypeRef) (string, error) {
	if ref.Name == "" || !knownTypeRefKind(ref.Kind) {
		return "", fmt.Errorf("%w: %q %q", ErrInvalidTypeRef, ref.Kind, ref.Name)
	}
	if err := checkValue("typeref", ref.Name); err != nil {
		return "", err
	}
	value := ref.Kind + ":" + ref.Name
	if ref.Kind == TypeRefTypename {
		value = ref.Name
	}
	// the encoded value must read back as the same reference
	if back := decodeTypeRef(value); *back != ref {
		return "", fmt.Errorf("%w: ambiguous %s %q", ErrInvalidTypeRef, ref.Kind, ref.Name)
	}
	return value, nil
}

func decodeTypeRef(value string) *TypeRef {
	if i := strings.IndexByte(value, ':'); i > 0 && i+1 < len(value) && value[i+1] != ':' {
		if kind := value[:i]; knownTypeRefKind(kind) && kind != TypeRefTypename {
			return &TypeRef{Kind: kind, Name: value[i+1:]}
		}
	}
	return &TypeRef{Kind: TypeRefTypename, Name: value}
}

// Decode parses one record line. A single trailing newline is allowed.
// Fields may appear in any order and any of them may be missing except the
// name. Fields the index no longer uses are accepted and dropped.
func Decode(line []byte) (Record, error) {
	line = bytes.TrimSuffix(line, []byte{'\n'})
	if len(line) == 0 {
		return Record{}, fmt.Errorf("%w: empty line", ErrMalformedLine)
	}
	if line[0] >= controlThreshold {
		return Record{}, fmt.Errorf("%w: missing name", ErrMalformedLine)
	}

	var r Record
	pos := 0
	first := true
	for pos < len(line) {
		field := FieldName
		if !first {
			field = Field(line[pos])
			pos++
		}
		end := pos
		for end < len(line) && line[end] < controlThreshold {
			end++
		}
		value := string(line[pos:end])
		pos = end

		if first {
			r.Name = value
			first = false
			continue
		}
		if err := r.set(field, value); err != nil {
			return Record{}, err
		}
	}
	if r.Name == "" {
		return Record{}, fmt.Errorf("%w: missing name", ErrMalformedLine)
	}
	return r, nil
}

func (r *Record) set(field Field, value string) error {
	switch field {
	case FieldType:
		kind, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: kind %q", ErrMalformedLine, value)
		}
		r.Kind = Kind(kind)
	case FieldArglist:
		r.Signature = Sig(value)
	case FieldScope:
		r.Scope = value
	case FieldVarType:
		if value != "" {
			r.TypeRef = decodeTypeRef(value)
		}
	case FieldLine, FieldLocal, FieldPos, FieldInherits, FieldTime,
		FieldAccess, FieldImpl, FieldLang, FieldInactive, FieldPointer:
	default:
		return fmt.Errorf("%w: unknown control byte %d", ErrMalformedLine, byte(field))
	}
	return nil
}
