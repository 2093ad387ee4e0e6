package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/snapdiff/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_CSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "books.csv",
		"id,source,title,price/value,category\n"+
			"1,books_static,A Light in the Attic,51.77,Poetry\n"+
			"2,books_static,\"Tipping the Velvet, Vol 1\",53.74,Historical Fiction\n")

	snap, err := Load(path, LoadOptions{Source: "books_static"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if snap.Source != "books_static" {
		t.Errorf("Source = %q", snap.Source)
	}
	if len(snap.Columns) != 5 || snap.Columns[0] != ColID {
		t.Errorf("Columns = %v", snap.Columns)
	}
	if snap.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", snap.Len())
	}
	if snap.Records[1].Title() != "Tipping the Velvet, Vol 1" {
		t.Errorf("Title = %q", snap.Records[1].Title())
	}
	if snap.Records[0].Get(ColValue) != "51.77" {
		t.Errorf("Value = %q", snap.Records[0].Get(ColValue))
	}
}

func TestLoad_BOMAndTrimmedID(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bom.csv", "\xEF\xBB\xBFid,title\n 7 ,Seven\n")

	snap, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Columns[0] != ColID {
		t.Errorf("first column = %q, want id (BOM stripped)", snap.Columns[0])
	}
	if snap.Records[0].ID != "7" || snap.Records[0].Get(ColID) != "7" {
		t.Errorf("ID = %q, want 7", snap.Records[0].ID)
	}
}

func TestLoad_ShortRowsPadded(t *testing.T) {
	path := writeFile(t, t.TempDir(), "short.csv", "id,title,category\na1,Book A\n")

	snap, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	r := snap.Records[0]
	if v, ok := r.Fields[ColCategory]; !ok || v != "" {
		t.Errorf("category = %q (present=%v), want empty", v, ok)
	}
}

func TestLoad_TSVAndAliases(t *testing.T) {
	path := writeFile(t, t.TempDir(), "quotes.tsv",
		"id\ttext\tauthor\ttags\n"+
			"q1\t“Quote”\tAlbert Einstein\tlife,love\n")

	snap, err := Load(path, LoadOptions{
		Source:  "quotes_dynamic",
		Aliases: map[string]string{"text": ColTitle, "author": ColAuthor, "tags": ColCategory},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{ColID, ColTitle, ColAuthor, ColCategory}
	for i, c := range want {
		if snap.Columns[i] != c {
			t.Fatalf("Columns = %v, want %v", snap.Columns, want)
		}
	}
	r := snap.Records[0]
	if r.Get(ColAuthor) != "Albert Einstein" || r.Get(ColCategory) != "life,love" {
		t.Errorf("record = %v", r.Fields)
	}
}

func TestLoad_DelimiterOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "semi.csv", "id;title\n1;One\n")

	snap, err := Load(path, LoadOptions{Delimiter: ";"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Records[0].Title() != "One" {
		t.Errorf("Title = %q, want One", snap.Records[0].Title())
	}

	if _, err := Load(path, LoadOptions{Delimiter: ";;"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("multi-char delimiter error = %v, want INVALID_REQUEST", err)
	}
}

func TestLoad_JSONL(t *testing.T) {
	path := writeFile(t, t.TempDir(), "quotes.jsonl",
		`{"id": 101, "title": "A", "tags": ["life", "love"], "price/value": 3.0}`+"\n"+
			"\n"+
			`{"title": "B", "id": "102", "author/vendor": "Jane"}`+"\n")

	snap, err := Load(path, LoadOptions{Source: "quotes_dynamic", Aliases: map[string]string{"tags": ColCategory}})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{ColID, ColTitle, ColCategory, ColValue, ColAuthor}
	if len(snap.Columns) != len(want) {
		t.Fatalf("Columns = %v, want %v", snap.Columns, want)
	}
	for i, c := range want {
		if snap.Columns[i] != c {
			t.Fatalf("Columns = %v, want %v", snap.Columns, want)
		}
	}

	first := snap.Records[0]
	if first.ID != "101" {
		t.Errorf("ID = %q, want 101", first.ID)
	}
	if first.Get(ColCategory) != "life,love" {
		t.Errorf("Category = %q, want life,love", first.Get(ColCategory))
	}
	if first.Get(ColValue) != "3.0" {
		t.Errorf("Value = %q, want 3.0 (verbatim)", first.Get(ColValue))
	}
	if v, ok := first.Fields[ColAuthor]; !ok || v != "" {
		t.Errorf("author/vendor = %q (present=%v), want empty", v, ok)
	}
	if snap.Records[1].ID != "102" {
		t.Errorf("ID = %q, want 102", snap.Records[1].ID)
	}
}

func TestLoad_Windows1252(t *testing.T) {
	path := writeFile(t, t.TempDir(), "legacy.csv", "id,title\n1,Caf\xe9\n")

	snap, err := Load(path, LoadOptions{Encoding: "windows-1252"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Records[0].Title() != "Café" {
		t.Errorf("Title = %q, want Café", snap.Records[0].Title())
	}

	if _, err := Load(path, LoadOptions{Encoding: "klingon"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("unknown encoding error = %v, want INVALID_REQUEST", err)
	}
}

func TestLoad_DedupOnSourceAndID(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dups.csv",
		"id,source,title\n"+
			"1,books_static,old\n"+
			"1,other,kept-other\n"+
			"1,books_static,new\n")

	snap, err := Load(path, LoadOptions{Source: "books_static"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", snap.Duplicates)
	}
	if snap.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", snap.Len())
	}
	if snap.Records[0].Title() != "kept-other" || snap.Records[1].Title() != "new" {
		t.Errorf("records = %v / %v", snap.Records[0].Fields, snap.Records[1].Fields)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		code errors.ErrorCode
	}{
		{
			name: "missing file",
			path: filepath.Join(dir, "books_p9.csv"),
			code: errors.ErrInputNotFound,
		},
		{
			name: "no id column",
			path: writeFile(t, dir, "noid.csv", "title,category\nA,B\n"),
			code: errors.ErrSchemaIncompatible,
		},
		{
			name: "duplicate header",
			path: writeFile(t, dir, "dupcol.csv", "id,title,title\n1,A,B\n"),
			code: errors.ErrInvalidSnapshot,
		},
		{
			name: "duplicate header after trim",
			path: writeFile(t, dir, "duptrim.csv", "id,title, title \n1,A,B\n"),
			code: errors.ErrInvalidSnapshot,
		},
		{
			name: "empty file",
			path: writeFile(t, dir, "empty.csv", ""),
			code: errors.ErrInvalidSnapshot,
		},
		{
			name: "bad quoting",
			path: writeFile(t, dir, "bad.csv", "id,title\n1,\"unterminated\n"),
			code: errors.ErrInvalidSnapshot,
		},
		{
			name: "bad jsonl",
			path: writeFile(t, dir, "bad.jsonl", "{\"id\": 1\n"),
			code: errors.ErrInvalidSnapshot,
		},
		{
			name: "jsonl array line",
			path: writeFile(t, dir, "arr.jsonl", "[1,2]\n"),
			code: errors.ErrInvalidSnapshot,
		},
		{
			name: "unsupported extension",
			path: writeFile(t, dir, "books.xml", "<x/>"),
			code: errors.ErrInvalidRequest,
		},
		{
			name: "empty path",
			path: "  ",
			code: errors.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path, LoadOptions{})
			if !errors.Is(err, tt.code) {
				t.Errorf("Load() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoad_HeaderOnly(t *testing.T) {
	path := writeFile(t, t.TempDir(), "header.csv", "id,title\n")

	snap, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Len() != 0 {
		t.Errorf("Len() = %d, want 0", snap.Len())
	}
}
