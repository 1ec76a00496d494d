package extract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/mvp-joe/tagsgen/internal/sanitize"
	"github.com/mvp-joe/tagsgen/internal/tags"
)

// declPattern matches "class Name:", "class Name(Base):" and "def name(args):"
// at any indentation.
var declPattern = regexp.MustCompile(`^[ \t]*(def|class)[ \t]+([A-Za-z0-9_]+)[ \t]*(\(.*\))?[ \t]*:`)

const maxLineSize = 1024 * 1024

// Fallback extracts records by matching declaration lines in the source text.
// Nesting is not tracked, so methods are recorded as top-level functions.
type Fallback struct{}

func NewFallback() *Fallback { return &Fallback{} }

func (f *Fallback) Name() string { return "pattern" }

func (f *Fallback) Extract(ctx context.Context, unit Unit) (*Result, error) {
	if unit.Path == "" {
		return nil, fmt.Errorf("%s: %w", unit, ErrNoSource)
	}
	source, err := os.ReadFile(unit.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", unit, ErrNoSource, err)
	}
	records, err := ScanDeclarations(source)
	res := &Result{Unit: unit, Records: records}
	if err != nil {
		res.Partial = fmt.Errorf("%s: %w", unit, err)
	}
	return res, nil
}

// ScanDeclarations returns one record per public declaration line in source.
// Only the private-name rule applies; there is no minimum length. A line
// longer than 1 MiB ends the scan; the records before it are returned with
// the scanner's error.
func ScanDeclarations(source []byte) ([]tags.Record, error) {
	var records []tags.Record

	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		m := declPattern.FindSubmatch(scanner.Bytes())
		if m == nil {
			continue
		}
		name := string(m[2])
		if tags.IsPrivate(name) {
			continue
		}

		rec := tags.Record{Name: name, Kind: tags.KindFunction, Origin: tags.OriginFallback}
		if string(m[1]) == "class" {
			rec.Kind = tags.KindClass
		}
		if len(m[3]) > 0 {
			rec.Signature = tags.Sig(sanitize.ASCII(strings.TrimSpace(string(m[3]))))
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("scan stopped after %d declarations: %w", len(records), err)
	}
	return records, nil
}
