package tagdb

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/tagsgen/internal/tags"
)

// Test Plan for DB:
// - The first record for a (scope, name, kind) wins; other kinds and scopes coexist
// - Private and unencodable records are rejected and counted
// - Records come out sorted by name, then scope, then kind
// - Writing the same records twice, in any insertion order, gives identical bytes
// - WriteFile produces header plus one line per record and no trailing blank line
// - WriteFile reports a destination that cannot be created

var fixedTime = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func testHeader() tags.Header {
	return tags.NewHeader("tagsgen test (CPython 3.12.1)", fixedTime)
}

func fn(name, sig string) tags.Record {
	return tags.Record{Name: name, Kind: tags.KindFunction, Signature: tags.Sig(sig), Origin: tags.OriginReflective}
}

func TestAdd_FirstWriterWins(t *testing.T) {
	t.Parallel()

	db := New()

	ok, err := db.Add(fn("open", "(file, mode='r')"))
	require.NoError(t, err)
	assert.True(t, ok)

	dup := fn("open", "(path)")
	dup.Origin = tags.OriginFallback
	ok, err = db.Add(dup)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.Add(tags.Record{Name: "open", Kind: tags.KindMember, Scope: "Shelf", Origin: tags.OriginReflective})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.Add(tags.Record{Name: "open", Kind: tags.KindClass, Origin: tags.OriginReflective})
	require.NoError(t, err)
	assert.True(t, ok)

	require.Equal(t, 3, db.Len())
	for _, r := range db.Records() {
		if r.Kind == tags.KindFunction {
			assert.Equal(t, "(file, mode='r')", *r.Signature)
		}
	}

	stats := db.Stats()
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 3, stats.Added[tags.OriginReflective])
	assert.Zero(t, stats.Added[tags.OriginFallback])
}

func TestAdd_Rejects(t *testing.T) {
	t.Parallel()

	db := New()

	_, err := db.Add(fn("_private", "()"))
	assert.ErrorIs(t, err, ErrPrivateName)

	_, err = db.Add(fn("trailing_", "()"))
	assert.ErrorIs(t, err, ErrPrivateName)

	_, err = db.Add(fn("bad", "(x='\xcc')"))
	assert.ErrorIs(t, err, tags.ErrReservedByte)

	_, err = db.Add(tags.Record{Kind: tags.KindFunction})
	assert.ErrorIs(t, err, tags.ErrEmptyName)

	assert.Zero(t, db.Len())
	assert.Equal(t, 4, db.Stats().Rejected)
}

func TestRecords_Sorted(t *testing.T) {
	t.Parallel()

	db := New()
	for _, r := range []tags.Record{
		fn("zip", "()"),
		{Name: "close", Kind: tags.KindMember, Scope: "Writer"},
		{Name: "close", Kind: tags.KindMember, Scope: "Reader"},
		fn("close", "(fd)"),
		{Name: "Reader", Kind: tags.KindClass},
		{Name: "close", Kind: tags.KindClass},
	} {
		_, err := db.Add(r)
		require.NoError(t, err)
	}

	var got []string
	for _, r := range db.Records() {
		got = append(got, r.Scope+"::"+r.Name+":"+r.Kind.String())
	}
	assert.Equal(t, []string{
		"::Reader:class",
		"::close:class",
		"::close:function",
		"Reader::close:member",
		"Writer::close:member",
		"::zip:function",
	}, got)
}

func TestWrite_Idempotent(t *testing.T) {
	t.Parallel()

	records := []tags.Record{
		fn("alpha", "(a)"),
		{Name: "Beta", Kind: tags.KindClass, Signature: tags.Sig("()")},
		{Name: "gamma", Kind: tags.KindMember, Scope: "Beta", TypeRef: &tags.TypeRef{Kind: tags.TypeRefTypename, Name: "int"}},
	}

	forward := New()
	backward := New()
	for i := range records {
		_, err := forward.Add(records[i])
		require.NoError(t, err)
		_, err = backward.Add(records[len(records)-1-i])
		require.NoError(t, err)
	}

	var first, second, third bytes.Buffer
	require.NoError(t, forward.Write(&first, testHeader()))
	require.NoError(t, forward.Write(&second, testHeader()))
	require.NoError(t, backward.Write(&third, testHeader()))

	assert.Equal(t, first.Bytes(), second.Bytes())
	assert.Equal(t, first.Bytes(), third.Bytes())
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	db := New()
	_, err := db.Add(fn("render", "(scale=1.0)"))
	require.NoError(t, err)
	_, err = db.Add(tags.Record{Name: "Widget", Kind: tags.KindClass})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "python.tags")
	require.NoError(t, db.WriteFile(path, testHeader()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(string(data), "\n")
	require.Len(t, lines, 8, "five header lines, two records, empty remainder after the final newline")
	assert.Equal(t, "# format=tagmanager", lines[0])
	assert.Equal(t, "# created=Fri Mar  1 12:30:00 2024", lines[4])
	assert.Equal(t, "Widget\xcc1", lines[5])
	assert.Equal(t, "render\xcc16\xcd(scale=1.0)", lines[6])
	assert.Empty(t, lines[7])
}

func TestWriteFile_CreateFails(t *testing.T) {
	t.Parallel()

	err := New().WriteFile(filepath.Join(t.TempDir(), "missing", "python.tags"), testHeader())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create")
}
