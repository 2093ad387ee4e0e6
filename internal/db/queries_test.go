package db

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/hpungsan/snapdiff/internal/errors"
	"github.com/hpungsan/snapdiff/internal/record"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newRecord(id, title, category string) record.Record {
	return record.Record{ID: id, Fields: map[string]string{
		record.ColID:       id,
		record.ColTitle:    title,
		record.ColCategory: category,
	}}
}

func newLoad(id, source string) SnapshotLoad {
	return SnapshotLoad{
		ID:       id,
		Source:   source,
		Path:     "data/" + source + ".csv",
		Columns:  []string{record.ColID, record.ColTitle, record.ColCategory},
		LoadedAt: 1760000000,
	}
}

func TestReplaceSnapshotAndGetLoad(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	recs := []record.Record{
		newRecord("1", "A Light in the Attic", "Poetry"),
		newRecord("2", "Tipping the Velvet", "Historical Fiction"),
	}
	load := newLoad("01JLOAD0000000000000000001", "books_static")
	load.Duplicates = 3

	if err := ReplaceSnapshot(ctx, db, load, recs); err != nil {
		t.Fatalf("ReplaceSnapshot() error = %v", err)
	}

	got, err := GetLoad(ctx, db, "books_static")
	if err != nil {
		t.Fatalf("GetLoad() error = %v", err)
	}
	if got.ID != load.ID || got.Path != load.Path {
		t.Errorf("load = %+v", got)
	}
	if got.RecordCount != 2 || got.Duplicates != 3 {
		t.Errorf("RecordCount = %d, Duplicates = %d", got.RecordCount, got.Duplicates)
	}
	if len(got.Columns) != 3 || got.Columns[1] != record.ColTitle {
		t.Errorf("Columns = %v", got.Columns)
	}
}

func TestReplaceSnapshot_ReplacesPrevious(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	if err := ReplaceSnapshot(ctx, db, newLoad("L1", "books_static"), []record.Record{
		newRecord("1", "Old Book", "X"),
	}); err != nil {
		t.Fatalf("ReplaceSnapshot() error = %v", err)
	}
	if err := ReplaceSnapshot(ctx, db, newLoad("L2", "books_static"), []record.Record{
		newRecord("9", "New Book", "Y"),
		newRecord("10", "Newer Book", "Y"),
	}); err != nil {
		t.Fatalf("ReplaceSnapshot() error = %v", err)
	}

	got, err := GetLoad(ctx, db, "books_static")
	if err != nil {
		t.Fatalf("GetLoad() error = %v", err)
	}
	if got.ID != "L2" {
		t.Errorf("ID = %q, want L2", got.ID)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM records").Scan(&n); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if n != 2 {
		t.Errorf("records = %d, want 2 (old load removed)", n)
	}
}

func TestGetLoad_NotFound(t *testing.T) {
	db := setupDB(t)

	_, err := GetLoad(context.Background(), db, "udn_sports")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestListLoads(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	loads, err := ListLoads(ctx, db)
	if err != nil {
		t.Fatalf("ListLoads() error = %v", err)
	}
	if len(loads) != 0 {
		t.Errorf("ListLoads() = %v, want empty", loads)
	}

	for _, src := range []string{"quotes_dynamic", "books_static"} {
		if err := ReplaceSnapshot(ctx, db, newLoad("L-"+src, src), nil); err != nil {
			t.Fatalf("ReplaceSnapshot() error = %v", err)
		}
	}

	loads, err = ListLoads(ctx, db)
	if err != nil {
		t.Fatalf("ListLoads() error = %v", err)
	}
	if len(loads) != 2 || loads[0].Source != "books_static" || loads[1].Source != "quotes_dynamic" {
		t.Errorf("ListLoads() = %+v", loads)
	}
}

func TestSearchRecords(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	recs := []record.Record{
		newRecord("1", "The Great Gatsby", "Fiction"),
		newRecord("2", "Great Expectations", "Classics"),
		newRecord("3", "Sapiens", "History"),
		newRecord("4", "ÉTUDES GREAT", "Music"),
	}
	if err := ReplaceSnapshot(ctx, db, newLoad("L1", "books_static"), recs); err != nil {
		t.Fatalf("ReplaceSnapshot() error = %v", err)
	}

	tests := []struct {
		name    string
		query   string
		limit   int
		offset  int
		wantIDs []string
		total   int
	}{
		{"case insensitive", "great", 10, 0, []string{"1", "2", "4"}, 3},
		{"non-ascii fold", "études", 10, 0, []string{"4"}, 1},
		{"pagination", "great", 1, 1, []string{"2"}, 3},
		{"empty query matches all", "", 10, 0, []string{"1", "2", "3", "4"}, 4},
		{"no match", "dune", 10, 0, nil, 0},
		{"percent is literal", "%", 10, 0, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := SearchRecords(ctx, db, "books_static", tt.query, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("SearchRecords() error = %v", err)
			}
			if total != tt.total {
				t.Errorf("total = %d, want %d", total, tt.total)
			}
			if len(items) != len(tt.wantIDs) {
				t.Fatalf("items = %d, want %d", len(items), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if items[i].ID != id {
					t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, id)
				}
			}
		})
	}

	items, _, err := SearchRecords(ctx, db, "books_static", "sapiens", 10, 0)
	if err != nil {
		t.Fatalf("SearchRecords() error = %v", err)
	}
	if items[0].Fields[record.ColCategory] != "History" {
		t.Errorf("Fields = %v", items[0].Fields)
	}
}

func TestSearchRecords_UnknownSource(t *testing.T) {
	db := setupDB(t)

	_, _, err := SearchRecords(context.Background(), db, "nope", "x", 10, 0)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestReplaceSnapshot_Cancelled(t *testing.T) {
	db := setupDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recs := make([]record.Record, 3)
	for i := range recs {
		recs[i] = newRecord(fmt.Sprint(i), "t", "c")
	}
	if err := ReplaceSnapshot(ctx, db, newLoad("L1", "books_static"), recs); err == nil {
		t.Fatal("expected error for cancelled context")
	}

	if _, err := GetLoad(context.Background(), db, "books_static"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("cancelled index should not persist, got %v", err)
	}
}

func TestDeleteLoad(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	if err := ReplaceSnapshot(ctx, db, newLoad("L1", "books_static"), []record.Record{newRecord("1", "t", "c")}); err != nil {
		t.Fatalf("ReplaceSnapshot() error = %v", err)
	}
	if err := DeleteLoad(ctx, db, "books_static"); err != nil {
		t.Fatalf("DeleteLoad() error = %v", err)
	}
	if err := DeleteLoad(ctx, db, "books_static"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second DeleteLoad() error = %v, want NOT_FOUND", err)
	}
}
