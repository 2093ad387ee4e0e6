package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hpungsan/snapdiff/internal/errors"
	"github.com/hpungsan/snapdiff/internal/record"
)

// SnapshotLoad describes the snapshot currently indexed for a source.
type SnapshotLoad struct {
	ID          string   `json:"id"`
	Source      string   `json:"source"`
	Path        string   `json:"path"`
	Columns     []string `json:"columns"`
	RecordCount int      `json:"record_count"`
	Duplicates  int      `json:"duplicates"`
	LoadedAt    int64    `json:"loaded_at"`
}

// IndexedRecord is one searchable record of an indexed snapshot.
type IndexedRecord struct {
	Position int               `json:"position"`
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Fields   map[string]string `json:"fields"`
}

// ReplaceSnapshot indexes recs as the current snapshot of load.Source,
// replacing whatever was indexed for that source before. All or nothing.
func ReplaceSnapshot(ctx context.Context, db *sql.DB, load SnapshotLoad, recs []record.Record) error {
	columnsJSON, err := json.Marshal(load.Columns)
	if err != nil {
		return errors.NewInternal(err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE load_id IN (SELECT id FROM snapshot_loads WHERE source = ?)`,
		load.Source); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_loads WHERE source = ?`, load.Source); err != nil {
		return errors.NewInternal(err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_loads (id, source, path, columns_json, record_count, duplicates, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		load.ID, load.Source, load.Path, string(columnsJSON), len(recs), load.Duplicates, load.LoadedAt,
	); err != nil {
		return errors.NewInternal(err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (load_id, position, record_id, title, title_fold, fields_json)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for i, r := range recs {
		if i%500 == 0 {
			if err := ctx.Err(); err != nil {
				return errors.NewCancelled("index")
			}
		}
		fieldsJSON, err := json.Marshal(r.Fields)
		if err != nil {
			return errors.NewInternal(err)
		}
		title := r.Title()
		if _, err := stmt.ExecContext(ctx, load.ID, i, r.ID, title, foldTitle(title), string(fieldsJSON)); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetLoad returns the snapshot indexed for source, or NOT_FOUND.
func GetLoad(ctx context.Context, db *sql.DB, source string) (*SnapshotLoad, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, source, path, columns_json, record_count, duplicates, loaded_at
		FROM snapshot_loads
		WHERE source = ?`, source)

	load, err := scanLoad(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(fmt.Sprintf("index for %s", source))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return load, nil
}

// ListLoads returns every indexed snapshot ordered by source.
func ListLoads(ctx context.Context, db *sql.DB) ([]SnapshotLoad, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, source, path, columns_json, record_count, duplicates, loaded_at
		FROM snapshot_loads
		ORDER BY source`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	loads := []SnapshotLoad{}
	for rows.Next() {
		load, err := scanLoad(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		loads = append(loads, *load)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return loads, nil
}

// SearchRecords returns records of the source's indexed snapshot whose title
// contains query, case-insensitively, in snapshot order. An empty query
// matches everything. The second return value is the total match count.
func SearchRecords(ctx context.Context, db *sql.DB, source, query string, limit, offset int) ([]IndexedRecord, int, error) {
	load, err := GetLoad(ctx, db, source)
	if err != nil {
		return nil, 0, err
	}

	where := `load_id = ?`
	args := []any{load.ID}
	if q := foldTitle(strings.TrimSpace(query)); q != "" {
		where += ` AND instr(title_fold, ?) > 0`
		args = append(args, q)
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT position, record_id, title, fields_json
		FROM records
		WHERE `+where+`
		ORDER BY position
		LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	items := []IndexedRecord{}
	for rows.Next() {
		var item IndexedRecord
		var fieldsJSON string
		if err := rows.Scan(&item.Position, &item.ID, &item.Title, &fieldsJSON); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &item.Fields); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return items, total, nil
}

// DeleteLoad removes the index for source. Returns NOT_FOUND if none exists.
func DeleteLoad(ctx context.Context, db *sql.DB, source string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE load_id IN (SELECT id FROM snapshot_loads WHERE source = ?)`, source); err != nil {
		return errors.NewInternal(err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM snapshot_loads WHERE source = ?`, source)
	if err != nil {
		return errors.NewInternal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFound(fmt.Sprintf("index for %s", source))
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLoad(s scanner) (*SnapshotLoad, error) {
	var load SnapshotLoad
	var columnsJSON string
	if err := s.Scan(&load.ID, &load.Source, &load.Path, &columnsJSON,
		&load.RecordCount, &load.Duplicates, &load.LoadedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(columnsJSON), &load.Columns); err != nil {
		return nil, fmt.Errorf("decode columns: %w", err)
	}
	return &load, nil
}

// foldTitle lowercases a title for case-insensitive matching.
// SQLite's LIKE only folds ASCII, so folding happens here.
func foldTitle(s string) string {
	return strings.ToLower(s)
}
