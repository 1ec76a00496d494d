// Package tagdb accumulates tag records and writes them as a sorted tag file.
package tagdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mvp-joe/tagsgen/internal/tags"
)

// ErrPrivateName is returned when adding a record whose name is private.
var ErrPrivateName = errors.New("private name")

type entry struct {
	record tags.Record
	line   []byte
}

// Stats counts what happened to the records offered to a DB.
type Stats struct {
	Added      map[tags.Origin]int
	Duplicates int
	Rejected   int
}

// DB holds at most one record per (scope, name, kind). The first record added
// for a key wins. A DB is not safe for concurrent use.
type DB struct {
	entries map[tags.Key]entry
	stats   Stats
}

func New() *DB {
	return &DB{
		entries: make(map[tags.Key]entry),
		stats:   Stats{Added: make(map[tags.Origin]int)},
	}
}

// Add stores rec unless a record with the same key is already present.
// It reports whether rec was stored. Records that cannot be encoded or have
// a private name are rejected with an error.
func (db *DB) Add(rec tags.Record) (bool, error) {
	if tags.IsPrivate(rec.Name) {
		db.stats.Rejected++
		return false, fmt.Errorf("%w: %q", ErrPrivateName, rec.Name)
	}
	key := rec.Key()
	if _, exists := db.entries[key]; exists {
		db.stats.Duplicates++
		return false, nil
	}
	line, err := tags.Encode(rec)
	if err != nil {
		db.stats.Rejected++
		return false, err
	}
	db.entries[key] = entry{record: rec, line: line}
	db.stats.Added[rec.Origin]++
	return true, nil
}

func (db *DB) Len() int {
	return len(db.entries)
}

// Stats returns a copy of the counters.
func (db *DB) Stats() Stats {
	added := make(map[tags.Origin]int, len(db.stats.Added))
	for origin, n := range db.stats.Added {
		added[origin] = n
	}
	return Stats{Added: added, Duplicates: db.stats.Duplicates, Rejected: db.stats.Rejected}
}

// Records returns the stored records in file order.
func (db *DB) Records() []tags.Record {
	sorted := db.sorted()
	records := make([]tags.Record, len(sorted))
	for i, e := range sorted {
		records[i] = e.record
	}
	return records
}

func (db *DB) sorted() []entry {
	entries := make([]entry, 0, len(db.entries))
	for _, e := range db.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return tags.Less(entries[i].record, entries[j].record)
	})
	return entries
}

// Write writes the header and every record, sorted, to w. Output depends only
// on the stored records and h.
func (db *DB) Write(w io.Writer, h tags.Header) error {
	if err := tags.WriteHeader(w, h); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, e := range db.sorted() {
		if _, err := w.Write(e.line); err != nil {
			return fmt.Errorf("failed to write record %q: %w", e.record.Name, err)
		}
	}
	return nil
}

// WriteFile creates path and writes the tag file to it. The file is closed on
// every path; a failed close is reported.
func (db *DB) WriteFile(path string, h tags.Header) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := db.Write(bw, h); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}
