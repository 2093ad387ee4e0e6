// Package report persists diff results: a summary document and a diff table
// per source and run. It makes no decisions about the data it writes.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/hpungsan/snapdiff/internal/diff"
	"github.com/hpungsan/snapdiff/internal/errors"
	"github.com/hpungsan/snapdiff/internal/safefile"
)

// SheetName is the worksheet holding an xlsx diff table.
const SheetName = "diff"

// Paths are the artifacts written by Emit.
type Paths struct {
	Summary string `json:"summary"`
	Table   string `json:"table"`
}

// Emit writes the diff table and then the summary into dir, creating it if
// needed. The summary file is overwritten on every run; the table file name
// carries the run date. A failed table write leaves the previous summary in
// place. Any failure is returned as WRITE_FAILED.
func Emit(dir string, summary diff.Summary, table *diff.Table, format Format) (*Paths, error) {
	if format == "" {
		format = FormatCSV
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if table == nil {
		table = &diff.Table{}
	}

	runAt, err := summary.RunTime()
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid run_timestamp %q", summary.RunTimestamp))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewWriteFailed(dir, err)
	}

	paths := &Paths{
		Summary: SummaryPath(dir, summary.Source),
		Table:   filepath.Join(dir, DiffFileName(summary.Source, runAt, format)),
	}

	if err := safefile.WriteAtomic(paths.Table, 0644, func(w io.Writer) error {
		return WriteTable(w, table, format)
	}); err != nil {
		return nil, errors.NewWriteFailed(paths.Table, err)
	}

	// The summary goes last: it is what marks the run as committed.
	if err := safefile.WriteAtomic(paths.Summary, 0644, func(w io.Writer) error {
		return writeSummary(w, summary)
	}); err != nil {
		return nil, errors.NewWriteFailed(paths.Summary, err)
	}

	return paths, nil
}

// writeSummary encodes the summary with 4-space indentation.
// Non-ASCII text is written as-is.
func writeSummary(w io.Writer, summary diff.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(summary)
}

// WriteTable encodes table in format.
func WriteTable(w io.Writer, table *diff.Table, format Format) error {
	switch format {
	case FormatXLSX:
		return writeXLSX(w, table)
	default:
		return writeDelimited(w, table, format.comma())
	}
}

func writeDelimited(w io.Writer, table *diff.Table, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(table.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeXLSX(w io.Writer, table *diff.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	header := toCells(table.Columns)
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := toCells(row)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
