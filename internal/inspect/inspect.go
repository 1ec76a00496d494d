// Package inspect decodes tag files for display.
package inspect

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/mvp-joe/tagsgen/internal/tags"
)

// Entry is one decoded record line.
type Entry struct {
	Line   int // 1-based, counting header lines
	Raw    []byte
	Record tags.Record
}

// Skip is a record line that could not be decoded.
type Skip struct {
	Line int
	Raw  []byte
	Err  error
}

// Report is the decoded content of a tag file.
type Report struct {
	Header  tags.Header
	Entries []Entry
	Skipped []Skip
}

// Read decodes a tag file. Lines that fail to decode are collected in
// Report.Skipped and reading continues; only a missing header or an I/O
// error fails the whole read.
func Read(r io.Reader) (*Report, error) {
	br := bufio.NewReader(r)
	header, lineNo, err := tags.ReadHeader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	report := &Report{Header: header}
	for {
		raw, err := br.ReadBytes('\n')
		if len(raw) > 0 {
			lineNo++
			raw = bytes.TrimSuffix(raw, []byte{'\n'})
			rec, decErr := tags.Decode(raw)
			if decErr != nil {
				report.Skipped = append(report.Skipped, Skip{Line: lineNo, Raw: raw, Err: decErr})
			} else {
				report.Entries = append(report.Entries, Entry{Line: lineNo, Raw: raw, Record: rec})
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", lineNo+1, err)
		}
	}
	return report, nil
}

// Format renders a record as "kind: [type ]scope :: name(signature)" with the
// kind label padded to twelve columns.
func Format(rec tags.Record) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%-12s", rec.Kind.String()+": ")
	if rec.TypeRef != nil {
		b.WriteString(typeRefText(rec.TypeRef))
		b.WriteByte(' ')
	}
	if rec.Scope != "" {
		b.WriteString(rec.Scope)
		b.WriteString(" :: ")
	}
	b.WriteString(rec.Name)
	if rec.Signature != nil {
		b.WriteString(*rec.Signature)
	}
	return b.String()
}

func typeRefText(ref *tags.TypeRef) string {
	if ref.Kind == tags.TypeRefTypename {
		return ref.Name
	}
	return ref.Kind + ":" + ref.Name
}

// Print writes every entry formatted, one per line. With raw set each entry
// is preceded by its undecoded line.
func Print(w io.Writer, report *Report, raw bool) error {
	bw := bufio.NewWriter(w)
	for _, e := range report.Entries {
		if raw {
			bw.Write(e.Raw)
			bw.WriteByte('\n')
		}
		bw.WriteString(Format(e.Record))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// KindCount is the number of entries of one kind.
type KindCount struct {
	Kind  tags.Kind
	Count int
}

// CountKinds tallies entries by kind, most frequent first.
func (r *Report) CountKinds() []KindCount {
	counts := map[tags.Kind]int{}
	for _, e := range r.Entries {
		counts[e.Record.Kind]++
	}
	out := make([]KindCount, 0, len(counts))
	for kind, n := range counts {
		out = append(out, KindCount{Kind: kind, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
