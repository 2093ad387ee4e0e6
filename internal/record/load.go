package record

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/hpungsan/snapdiff/internal/errors"
	"github.com/hpungsan/snapdiff/internal/safefile"
)

// maxJSONLLine bounds a single JSONL record.
const maxJSONLLine = 16 * 1024 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadOptions controls how a snapshot file is read.
type LoadOptions struct {
	// Source names the snapshot; rows without a source column dedup under it.
	Source string

	// Aliases renames source headers to canonical columns.
	Aliases map[string]string

	// Encoding is an HTML/WHATWG encoding label (e.g. "windows-1252", "big5").
	// Empty means UTF-8.
	Encoding string

	// Delimiter overrides the separator derived from the file extension.
	// "\t" and "tab" both select a tab.
	Delimiter string
}

type fileFormat int

const (
	formatDelimited fileFormat = iota
	formatJSONL
)

// Load reads a snapshot file into canonical records.
// Supported formats: .csv, .tsv and .jsonl (one object per line).
//
// Errors: a missing file is INPUT_NOT_FOUND; an unreadable or malformed file is
// INVALID_SNAPSHOT; a file without an id column is SCHEMA_INCOMPATIBLE.
func Load(path string, opts LoadOptions) (*Snapshot, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.NewInvalidRequest("snapshot path is required")
	}

	format, comma, err := detectFormat(path, opts.Delimiter)
	if err != nil {
		return nil, err
	}

	f, err := safefile.OpenReadNoFollow(path)
	if err != nil {
		if _, ok := err.(*errors.SnapError); ok {
			return nil, err
		}
		return nil, errors.NewInvalidSnapshot(path, err)
	}
	defer f.Close()

	r, err := decodeReader(f, opts.Encoding)
	if err != nil {
		return nil, err
	}

	var columns []string
	var records []Record
	switch format {
	case formatJSONL:
		columns, records, err = readJSONL(r, opts.Aliases)
	default:
		columns, records, err = readDelimited(r, comma, opts.Aliases)
	}
	if err != nil {
		if _, ok := err.(*errors.SnapError); ok {
			return nil, err
		}
		return nil, errors.NewInvalidSnapshot(path, err)
	}

	if !containsColumn(columns, ColID) {
		return nil, errors.NewSchemaIncompatible(path, ColID)
	}

	records, dropped := dedupeBy(records, func(rec Record) string {
		src := rec.Fields[ColSource]
		if src == "" {
			src = opts.Source
		}
		return src + "\x00" + rec.ID
	})

	return &Snapshot{
		Source:     opts.Source,
		Path:       path,
		Columns:    columns,
		Records:    records,
		Duplicates: dropped,
	}, nil
}

func detectFormat(path, delimiter string) (fileFormat, rune, error) {
	if delimiter != "" {
		comma, err := parseDelimiter(delimiter)
		return formatDelimited, comma, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return formatDelimited, ',', nil
	case ".tsv", ".tab":
		return formatDelimited, '\t', nil
	case ".jsonl", ".ndjson":
		return formatJSONL, 0, nil
	default:
		return 0, 0, errors.NewInvalidRequest(
			fmt.Sprintf("unsupported snapshot format %q (want .csv, .tsv or .jsonl)", filepath.Ext(path)))
	}
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) || r == '"' || r == '\r' || r == '\n' {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("invalid delimiter %q", s))
	}
	return r, nil
}

// decodeReader wraps r with a charset decoder and strips a leading UTF-8 BOM.
func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	label := strings.ToLower(strings.TrimSpace(encoding))
	if label != "" && label != "utf-8" && label != "utf8" {
		enc, err := htmlindex.Get(label)
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown encoding %q", encoding))
		}
		r = transform.NewReader(r, enc.NewDecoder())
	}

	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return br, nil
}

func readDelimited(r io.Reader, comma rune, aliases map[string]string) ([]string, []Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty snapshot: no header row")
	}
	if err != nil {
		return nil, nil, err
	}
	columns := Canonicalize(header, aliases)
	if dup := firstDuplicate(columns); dup != "" {
		return nil, nil, fmt.Errorf("duplicate column %q in header", dup)
	}

	idIdx := -1
	for i, c := range columns {
		if c == ColID {
			idIdx = i
			break
		}
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		fields := make(map[string]string, len(columns))
		for i, c := range columns {
			if i < len(row) {
				fields[c] = row[i]
			} else {
				fields[c] = ""
			}
		}

		var id string
		if idIdx >= 0 {
			id = CoerceID(fields[ColID])
			fields[ColID] = id
		}
		records = append(records, Record{ID: id, Fields: fields})
	}
	return columns, records, nil
}

func readJSONL(r io.Reader, aliases map[string]string) ([]string, []Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)

	var columns []string
	seen := make(map[string]bool)
	var records []Record

	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}

		keys, values, err := decodeObject(text)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}

		names := Canonicalize(keys, aliases)
		fields := make(map[string]string, len(keys))
		for i, k := range keys {
			name := names[i]
			if name == ColID {
				fields[name] = CoerceID(values[k])
			} else {
				fields[name] = cellValue(values[k])
			}
			if !seen[name] {
				seen[name] = true
				columns = append(columns, name)
			}
		}
		records = append(records, Record{ID: fields[ColID], Fields: fields})
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty snapshot: no records")
	}

	// Rows missing a column read as missing values.
	for _, rec := range records {
		for _, c := range columns {
			if _, ok := rec.Fields[c]; !ok {
				rec.Fields[c] = ""
			}
		}
	}
	return columns, records, nil
}

// decodeObject decodes one JSON object, keeping its key order.
func decodeObject(data []byte) ([]string, map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected a JSON object")
	}

	var keys []string
	values := make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected object key")
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

// cellValue flattens a decoded JSON value into a table cell.
// Lists join with "," the way scrapers join tag lists.
func cellValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, cellValue(p))
		}
		return strings.Join(parts, ",")
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// firstDuplicate returns the first column name that appears twice, or "".
func firstDuplicate(columns []string) string {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return c
		}
		seen[c] = true
	}
	return ""
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
