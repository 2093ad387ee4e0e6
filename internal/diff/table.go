package diff

import (
	"github.com/hpungsan/snapdiff/internal/record"
)

// Row status values.
const (
	StatusAdded    = "added"
	StatusDeleted  = "deleted"
	StatusModified = "modified"
)

// ColStatus is the column carrying a row's status.
const ColStatus = "status"

// Suffixes applied to columns of modified rows.
const (
	SuffixOld = "_old"
	SuffixNew = "_new"
)

// Table is the combined diff table: added rows, then deleted, then modified.
// Each row has one cell per column; missing values are empty strings.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of column, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Value returns row i's cell for column, or "" when the column is absent.
func (t *Table) Value(i int, column string) string {
	idx := t.Index(column)
	if idx < 0 || i < 0 || i >= len(t.Rows) || idx >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][idx]
}

// Filter returns the rows whose status equals status.
func (t *Table) Filter(status string) *Table {
	out := &Table{Columns: t.Columns}
	idx := t.Index(ColStatus)
	if idx < 0 {
		return out
	}
	for _, row := range t.Rows {
		if idx < len(row) && row[idx] == status {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// buildTable lays out the diff table.
// Columns: union of new then old-only columns, status, then the suffixed
// columns of modified rows when there are any.
func buildTable(oldCols, newCols []string, added, deleted []record.Record, modified []Change) *Table {
	var base []string
	seen := make(map[string]bool)
	for _, cols := range [][]string{newCols, oldCols} {
		for _, c := range cols {
			if c == ColStatus || seen[c] {
				continue
			}
			seen[c] = true
			base = append(base, c)
		}
	}

	columns := append(append([]string{}, base...), ColStatus)

	var oldSuffixed, newSuffixed []string
	if len(modified) > 0 {
		for _, c := range oldCols {
			if c != record.ColID && c != ColStatus {
				oldSuffixed = append(oldSuffixed, c)
				columns = append(columns, c+SuffixOld)
			}
		}
		for _, c := range newCols {
			if c != record.ColID && c != ColStatus {
				newSuffixed = append(newSuffixed, c)
				columns = append(columns, c+SuffixNew)
			}
		}
	}

	t := &Table{Columns: columns, Rows: make([][]string, 0, len(added)+len(deleted)+len(modified))}
	width := len(columns)

	single := func(r record.Record, status string) []string {
		row := make([]string, width)
		for i, c := range base {
			row[i] = r.Get(c)
		}
		row[len(base)] = status
		return row
	}

	for _, r := range added {
		t.Rows = append(t.Rows, single(r, StatusAdded))
	}
	for _, r := range deleted {
		t.Rows = append(t.Rows, single(r, StatusDeleted))
	}

	idIdx := -1
	for i, c := range base {
		if c == record.ColID {
			idIdx = i
			break
		}
	}
	for _, ch := range modified {
		row := make([]string, width)
		if idIdx >= 0 {
			row[idIdx] = ch.ID
		}
		row[len(base)] = StatusModified
		pos := len(base) + 1
		for _, c := range oldSuffixed {
			row[pos] = ch.Old.Get(c)
			pos++
		}
		for _, c := range newSuffixed {
			row[pos] = ch.New.Get(c)
			pos++
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
