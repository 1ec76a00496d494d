// Package docimport builds tag records from a machine-readable API manual: a
// JSON object mapping fully-qualified symbol names to definitions that carry
// a one-line prototype, e.g.
//
//	{"DateTime::format": {"prototype": "string DateTime::format(string $format)"}}
package docimport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/cavaliergopher/grab/v3"
	"github.com/dustin/go-humanize"

	"github.com/mvp-joe/tagsgen/internal/sanitize"
	"github.com/mvp-joe/tagsgen/internal/tags"
)

const (
	namespaceSep = `\`
	scopeSep     = "::"
	constructor  = "__construct"
)

// Definition is one manual entry. Fields other than the prototype are ignored.
type Definition struct {
	Prototype string `json:"prototype"`
}

// Stats counts the outcome of an import.
type Stats struct {
	Entries   int
	Records   int
	Unmatched int // prototype did not contain the symbol's own name
	Private   int
}

// Parse decodes a manual document.
func Parse(r io.Reader) (map[string]Definition, error) {
	var defs map[string]Definition
	if err := json.NewDecoder(r).Decode(&defs); err != nil {
		return nil, fmt.Errorf("failed to decode manual: %w", err)
	}
	return defs, nil
}

// Records converts definitions into records. Entries are visited in name
// order so the result does not depend on map iteration.
func Records(defs map[string]Definition) ([]tags.Record, Stats) {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		records []tags.Record
		stats   Stats
	)
	for _, fq := range names {
		stats.Entries++
		recs, ok := fromPrototype(fq, defs[fq].Prototype)
		if !ok {
			stats.Unmatched++
			continue
		}
		for _, rec := range recs {
			if tags.IsPrivate(rec.Name) {
				stats.Private++
				continue
			}
			records = append(records, rec)
		}
	}
	stats.Records = len(records)
	return records, stats
}

// fromPrototype parses "<return type> <fq name>(<args>)". A constructor also
// yields a class record for its enclosing scope.
func fromPrototype(fq, prototype string) ([]tags.Record, bool) {
	re, err := regexp.Compile(`^(.*) ` + regexp.QuoteMeta(fq) + `(\(.*\))$`)
	if err != nil {
		return nil, false
	}
	m := re.FindStringSubmatch(prototype)
	if m == nil {
		return nil, false
	}
	returnType := sanitize.ASCII(normalize(m[1]))
	args := sanitize.ASCII(m[2])

	scope, name := splitScope(fq)
	rec := tags.Record{
		Name:      name,
		Signature: tags.Sig(args),
		Scope:     scope,
		Origin:    tags.OriginDocImport,
	}
	switch {
	case strings.HasPrefix(name, "$") && scope != "":
		rec.Kind = tags.KindMember
	case strings.HasPrefix(name, "$"):
		rec.Kind = tags.KindVariable
	case scope != "":
		rec.Kind = tags.KindMethod
	default:
		rec.Kind = tags.KindFunction
	}
	if returnType != "" {
		rec.TypeRef = &tags.TypeRef{Kind: tags.TypeRefTypename, Name: returnType}
	}
	records := []tags.Record{rec}

	if name == constructor && scope != "" {
		outer, class := splitScope(scope)
		records = append(records, tags.Record{
			Name:      class,
			Kind:      tags.KindClass,
			Signature: tags.Sig(args),
			Scope:     outer,
			Origin:    tags.OriginDocImport,
		})
	}
	return records, true
}

func normalize(name string) string {
	return strings.ReplaceAll(name, namespaceSep, scopeSep)
}

// splitScope splits a normalized name at its last scope separator.
func splitScope(fq string) (scope, name string) {
	fq = normalize(fq)
	i := strings.LastIndex(fq, scopeSep)
	if i < 0 {
		return "", fq
	}
	return fq[:i], fq[i+len(scopeSep):]
}

// Open returns a reader for source, a local path or an http(s) URL. URLs are
// downloaded into dir first, or into a temp dir when dir is empty.
func Open(ctx context.Context, source, dir string, logger *slog.Logger) (io.ReadCloser, error) {
	if !isURL(source) {
		return os.Open(source)
	}
	path, err := download(ctx, source, dir, logger)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func download(ctx context.Context, url, dir string, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		tmp, err := os.MkdirTemp("", "tagsgen-doc-*")
		if err != nil {
			return "", err
		}
		dir = tmp
	}
	logger.InfoContext(ctx, "downloading manual", "url", url, "dir", dir)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	req, err := grab.NewRequest(dir, url)
	if err != nil {
		return "", fmt.Errorf("invalid manual url %q: %w", url, err)
	}
	client := grab.NewClient()
	client.UserAgent = "tagsgen"

	resp := client.Do(req.WithContext(ctx))
	if err := resp.Err(); err != nil {
		return "", fmt.Errorf("downloading manual: %w", err)
	}
	logger.DebugContext(ctx, "manual downloaded", "file", resp.Filename, "size", humanize.Bytes(uint64(resp.BytesComplete())))
	return resp.Filename, nil
}

// Load reads source and converts it to records.
func Load(ctx context.Context, source, dir string, logger *slog.Logger) ([]tags.Record, Stats, error) {
	rc, err := Open(ctx, source, dir, logger)
	if err != nil {
		return nil, Stats{}, err
	}
	defer rc.Close()

	defs, err := Parse(rc)
	if err != nil {
		return nil, Stats{}, err
	}
	records, stats := Records(defs)
	return records, stats, nil
}
