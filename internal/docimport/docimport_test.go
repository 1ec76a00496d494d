package docimport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/tagsgen/internal/tags"
)

// Test Plan for the manual import:
// - Functions, methods, variables and members are classified by scope and sigil
// - Return type becomes a typename reference, argument list the signature
// - Namespace separators are normalized before the scope is split
// - A constructor also yields a class record for its scope; the constructor itself is private
// - Prototypes that do not contain their own name are counted and skipped
// - Manuals load from a file and from an http URL

const manual = `{
	"strlen": {"prototype": "int strlen(string $string)"},
	"DateTime::format": {"prototype": "string DateTime::format(string $format)"},
	"DateTime::__construct": {"prototype": "void DateTime::__construct(string $datetime = \"now\")"},
	"MongoDB\\Driver\\Manager::__construct": {"prototype": "void MongoDB\\Driver\\Manager::__construct(string $uri)"},
	"MongoDB\\Driver\\Manager::getServers": {"prototype": "array MongoDB\\Driver\\Manager::getServers()"},
	"$argv": {"prototype": "array $argv()"},
	"Exception::$message": {"prototype": "string Exception::$message()"},
	"broken": {"prototype": "nothing to see here"},
	"ns\\fn": {"prototype": "ns\\Result ns\\fn()", "purpose": "ignored"}
}`

func byKey(records []tags.Record) map[string]tags.Record {
	m := map[string]tags.Record{}
	for _, r := range records {
		m[r.Scope+"|"+r.Name+"|"+r.Kind.String()] = r
	}
	return m
}

func TestRecords(t *testing.T) {
	t.Parallel()

	defs, err := Parse(strings.NewReader(manual))
	require.NoError(t, err)

	records, stats := Records(defs)
	got := byKey(records)

	assert.ElementsMatch(t, []string{
		"|strlen|function",
		"DateTime|format|method",
		"|DateTime|class",
		"MongoDB::Driver|Manager|class",
		"MongoDB::Driver::Manager|getServers|method",
		"|$argv|variable",
		"Exception|$message|member",
		"ns|fn|method",
	}, keysOf(got))

	strlen := got["|strlen|function"]
	assert.Equal(t, "(string $string)", *strlen.Signature)
	assert.Equal(t, &tags.TypeRef{Kind: tags.TypeRefTypename, Name: "int"}, strlen.TypeRef)
	assert.Equal(t, tags.OriginDocImport, strlen.Origin)

	class := got["|DateTime|class"]
	assert.Equal(t, `(string $datetime = "now")`, *class.Signature)
	assert.Nil(t, class.TypeRef)

	assert.Equal(t, &tags.TypeRef{Kind: tags.TypeRefTypename, Name: "ns::Result"}, got["ns|fn|method"].TypeRef)

	assert.Equal(t, Stats{Entries: 9, Records: 8, Unmatched: 1, Private: 2}, stats)
}

func TestRecords_Encodable(t *testing.T) {
	t.Parallel()

	defs, err := Parse(strings.NewReader(manual))
	require.NoError(t, err)
	records, _ := Records(defs)
	for _, r := range records {
		_, err := tags.Encode(r)
		assert.NoError(t, err, r.String())
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader(`["not", "an", "object"]`))
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manual.json")
	require.NoError(t, os.WriteFile(path, []byte(manual), 0644))

	records, stats, err := Load(context.Background(), path, t.TempDir(), nil)
	require.NoError(t, err)
	assert.Len(t, records, 8)
	assert.Equal(t, 9, stats.Entries)
}

func TestLoad_URL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(manual))
	}))
	defer srv.Close()

	dir := t.TempDir()
	records, _, err := Load(context.Background(), srv.URL+"/php_manual_en.json", dir, nil)
	require.NoError(t, err)
	assert.Len(t, records, 8)
	assert.FileExists(t, filepath.Join(dir, "php_manual_en.json"))
}

func keysOf(m map[string]tags.Record) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
