package inspect

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/tagsgen/internal/tagdb"
	"github.com/mvp-joe/tagsgen/internal/tags"
)

// Test Plan for Read and Format:
// - A file with three records, the middle one corrupted, yields two entries and one skip
// - The header block is parsed, not decoded as records
// - A file without the format header is rejected
// - A final line without newline is still decoded
// - Format follows the padded "kind: type scope :: name(sig)" layout
// - Unknown kind values print as UNKNOWN
// - Files written by tagdb read back to the same records

const header = "# format=tagmanager\n# version=1\n# sorted=1\n# generator=test\n# created=Fri Mar  1 12:30:00 2024\n"

func TestRead_IsolatesCorruptLine(t *testing.T) {
	t.Parallel()

	input := header +
		"Widget\xcc1\xcd()\n" +
		"\xccbroken\n" +
		"render\xcc64\xcd(scale=1.0)\xceWidget\n"

	report, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, report.Entries, 2)
	require.Len(t, report.Skipped, 1)

	assert.Equal(t, "Widget", report.Entries[0].Record.Name)
	assert.Equal(t, 6, report.Entries[0].Line)
	assert.Equal(t, "render", report.Entries[1].Record.Name)
	assert.Equal(t, 8, report.Entries[1].Line)

	assert.Equal(t, 7, report.Skipped[0].Line)
	assert.ErrorIs(t, report.Skipped[0].Err, tags.ErrMalformedLine)

	assert.Equal(t, "test", report.Header.Generator)
	assert.True(t, report.Header.Sorted)
}

func TestRead_NotATagFile(t *testing.T) {
	t.Parallel()

	_, err := Read(strings.NewReader("Widget\xcc1\n"))
	assert.ErrorIs(t, err, tags.ErrNotTagFile)
}

func TestRead_LastLineWithoutNewline(t *testing.T) {
	t.Parallel()

	report, err := Read(strings.NewReader("# format=tagmanager\nopen\xcc16\xcd(file)"))
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, "(file)", *report.Entries[0].Record.Signature)
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  tags.Record
		want string
	}{
		{
			"class",
			tags.Record{Name: "Widget", Kind: tags.KindClass, Signature: tags.Sig("()")},
			"class:      Widget()",
		},
		{
			"scoped member",
			tags.Record{Name: "render", Kind: tags.KindMember, Scope: "Widget", Signature: tags.Sig("(scale=1.0)")},
			"member:     Widget :: render(scale=1.0)",
		},
		{
			"with type",
			tags.Record{Name: "size", Kind: tags.KindFunction, Signature: tags.Sig("()"), TypeRef: &tags.TypeRef{Kind: tags.TypeRefTypename, Name: "int"}},
			"function:   int size()",
		},
		{
			"class typeref",
			tags.Record{Name: "root", Kind: tags.KindVariable, TypeRef: &tags.TypeRef{Kind: tags.TypeRefClass, Name: "Node"}},
			"variable:   class:Node root",
		},
		{
			"long label",
			tags.Record{Name: "ok", Kind: tags.KindEnumerator},
			"enumerator: ok",
		},
		{
			"unknown kind",
			tags.Record{Name: "odd", Kind: tags.Kind(3)},
			"UNKNOWN:    odd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Format(tt.rec))
		})
	}
}

func TestRead_RoundTripsWrittenFile(t *testing.T) {
	t.Parallel()

	db := tagdb.New()
	for _, r := range []tags.Record{
		{Name: "Widget", Kind: tags.KindClass, Signature: tags.Sig("()")},
		{Name: "render", Kind: tags.KindMember, Scope: "Widget", Signature: tags.Sig("(scale=1.0)")},
		{Name: "MAX_SIZE", Kind: tags.KindConstant},
	} {
		_, err := db.Add(r)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, db.Write(&buf, tags.NewHeader("tagsgen", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))))

	report, err := Read(&buf)
	require.NoError(t, err)
	assert.Empty(t, report.Skipped)

	var got []tags.Record
	for _, e := range report.Entries {
		got = append(got, e.Record)
	}
	assert.Equal(t, db.Records(), got)

	var out bytes.Buffer
	require.NoError(t, Print(&out, report, false))
	assert.Equal(t,
		"macro:      MAX_SIZE\nclass:      Widget()\nmember:     Widget :: render(scale=1.0)\n",
		out.String())

	assert.Equal(t, []KindCount{
		{Kind: tags.KindClass, Count: 1},
		{Kind: tags.KindMember, Count: 1},
		{Kind: tags.KindMacro, Count: 1},
	}, report.CountKinds())
}
