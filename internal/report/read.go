package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/hpungsan/snapdiff/internal/diff"
	"github.com/hpungsan/snapdiff/internal/errors"
)

// ReadSummary loads a summary document. A missing file is NOT_FOUND.
func ReadSummary(path string) (*diff.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}

	var s diff.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("parse summary %s: %w", path, err))
	}
	return &s, nil
}

// ReadTable loads a diff table written by Emit. The format follows the extension.
func ReadTable(path string) (*diff.Table, error) {
	format, err := formatFromPath(path)
	if err != nil {
		return nil, err
	}

	if format == FormatXLSX {
		return readXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = format.comma()
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return &diff.Table{}, nil
	}
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("read %s: %w", path, err))
	}

	t := &diff.Table{Columns: header}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewInternal(fmt.Errorf("read %s: %w", path, err))
		}
		t.Rows = append(t.Rows, padRow(row, len(header)))
	}
	return t, nil
}

func readXLSX(path string) (*diff.Table, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.NewNotFound(path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("read %s: %w", path, err))
	}
	if len(rows) == 0 {
		return &diff.Table{}, nil
	}

	t := &diff.Table{Columns: rows[0]}
	for _, row := range rows[1:] {
		t.Rows = append(t.Rows, padRow(row, len(t.Columns)))
	}
	return t, nil
}

// padRow extends row with empty cells up to width.
// Spreadsheet readers drop trailing empty cells.
func padRow(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}

// LatestDiffPath returns the newest diff table for source in dir.
// Dates come from the file name; ties go to the most recently modified file.
func LatestDiffPath(dir, source string) (string, error) {
	pattern := regexp.MustCompile(`^diff_` + regexp.QuoteMeta(SanitizeForFilename(source)) + `_(\d{8})\.(csv|tsv|xlsx)$`)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewNotFound(dir)
		}
		return "", errors.NewInternal(err)
	}

	type candidate struct {
		name    string
		date    string
		modUnix int64
	}
	var found []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		c := candidate{name: e.Name(), date: m[1]}
		if info, err := e.Info(); err == nil {
			c.modUnix = info.ModTime().UnixNano()
		}
		found = append(found, c)
	}
	if len(found) == 0 {
		return "", errors.NewNotFound(fmt.Sprintf("diff table for %s", source))
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].date != found[j].date {
			return found[i].date > found[j].date
		}
		if found[i].modUnix != found[j].modUnix {
			return found[i].modUnix > found[j].modUnix
		}
		return found[i].name < found[j].name
	})
	return filepath.Join(dir, found[0].name), nil
}
