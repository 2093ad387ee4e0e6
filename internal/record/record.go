// Package record defines the canonical row shape shared by every source and
// loads snapshot files into it.
package record

import (
	"path/filepath"
)

// Canonical column names. Every source is mapped onto these before diffing.
const (
	ColID         = "id"
	ColSource     = "source"
	ColTitle      = "title"
	ColURL        = "url"
	ColAuthor     = "author/vendor"
	ColCategory   = "category"
	ColDate       = "date"
	ColValue      = "price/value"
	ColLastSeenAt = "last_seen_at"
)

// Record is one entity observed from a source.
// Fields holds every column's raw value, including id. An empty value means missing.
type Record struct {
	ID     string
	Fields map[string]string
}

// Get returns the raw value of column, or "" when missing.
func (r Record) Get(column string) string {
	return r.Fields[column]
}

// Title returns the title column.
func (r Record) Title() string { return r.Fields[ColTitle] }

// Snapshot is one captured version of a source's record set.
// A Snapshot is not mutated after Load returns it.
type Snapshot struct {
	Source  string
	Path    string
	Columns []string
	Records []Record

	// Duplicates counts rows dropped by (source, id) dedup at load time.
	Duplicates int
}

// Name returns the snapshot's file name without directories.
func (s *Snapshot) Name() string {
	if s.Path == "" {
		return ""
	}
	return filepath.Base(s.Path)
}

// HasColumn reports whether the snapshot header contains column.
func (s *Snapshot) HasColumn(column string) bool {
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.Records)
}

// Dedupe collapses records sharing an id. The last occurrence wins and keeps
// its own position; the number of dropped records is returned.
func Dedupe(records []Record) ([]Record, int) {
	return dedupeBy(records, func(r Record) string { return r.ID })
}

func dedupeBy(records []Record, key func(Record) string) ([]Record, int) {
	last := make(map[string]int, len(records))
	for i, r := range records {
		last[key(r)] = i
	}
	if len(last) == len(records) {
		return records, 0
	}

	out := make([]Record, 0, len(last))
	for i, r := range records {
		if last[key(r)] == i {
			out = append(out, r)
		}
	}
	return out, len(records) - len(out)
}
