package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/hpungsan/snapdiff/internal/config"
	"github.com/hpungsan/snapdiff/internal/db"
	"github.com/hpungsan/snapdiff/internal/errors"
	"github.com/hpungsan/snapdiff/internal/ops"
)

const oldBooks = `id,title,price/value,category
1,A,20.0,fiction
2,B,10,poetry
3,C,5,art
`

const newBooks = `id,title,price/value,category
1,A,25.5,fiction
2,B2,10,poetry
4,D,7,art
`

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	cleanup := func() {
		database.Close()
	}
	return database, cleanup
}

// testConfig returns a config whose books_static source points at temp snapshots.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "books_old.csv")
	newPath := filepath.Join(dir, "books_new.csv")
	if err := os.WriteFile(oldPath, []byte(oldBooks), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newPath, []byte(newBooks), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.ReportDir = filepath.Join(dir, "reports")
	books := cfg.Sources["books_static"]
	books.Old = oldPath
	books.New = newPath
	cfg.Sources["books_static"] = books
	return cfg
}

func nullLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

// runCLI runs the app with args and returns what it wrote to stdout.
func runCLI(t *testing.T, database *sql.DB, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	app := newCLIApp(database, cfg, nullLogger())

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := app.Run(append([]string{"snapdiff"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

// TestParseList tests the parseList helper function.
func TestParseList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single field",
			input:    "title",
			expected: []string{"title"},
		},
		{
			name:     "multiple fields",
			input:    "price/value,title,category",
			expected: []string{"price/value", "title", "category"},
		},
		{
			name:     "fields with spaces",
			input:    " title , category ",
			expected: []string{"title", "category"},
		},
		{
			name:     "empty fields filtered",
			input:    "title,,category,",
			expected: []string{"title", "category"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseList(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("expected %d items, got %d", len(tt.expected), len(result))
				return
			}
			for i, item := range result {
				if item != tt.expected[i] {
					t.Errorf("expected item[%d]=%q, got %q", i, tt.expected[i], item)
				}
			}
		})
	}
}

func TestOutputError(t *testing.T) {
	err := outputError(errors.NewUnknownSource("udn_sports"))
	if !strings.HasPrefix(err.Error(), "[UNKNOWN_SOURCE] ") {
		t.Errorf("error = %q, want [UNKNOWN_SOURCE] prefix", err.Error())
	}

	err = outputError(os.ErrPermission)
	if err.Error() != os.ErrPermission.Error() {
		t.Errorf("error = %q, want %q", err.Error(), os.ErrPermission.Error())
	}
}

func TestIsCLIMode(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"snapdiff"}, false},
		{[]string{"snapdiff", "diff"}, true},
		{[]string{"snapdiff", "serve"}, true},
		{[]string{"snapdiff", "--version"}, true},
		{[]string{"snapdiff", "store"}, false},
	}
	for _, tt := range tests {
		os.Args = tt.args
		if got := isCLIMode(); got != tt.want {
			t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestDiffCommand(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)

	out, err := runCLI(t, database, cfg, "diff", "--source=books_static")
	if err != nil {
		t.Fatalf("diff command failed: %v", err)
	}

	var output ops.DiffOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Status != ops.StatusOK {
		t.Errorf("status = %q, want ok", output.Status)
	}
	if output.Summary == nil {
		t.Fatal("expected summary")
	}
	c := output.Summary.Counts
	if c.Added != 1 || c.Deleted != 1 || c.Modified != 2 {
		t.Errorf("counts = %+v, want added=1 deleted=1 modified=2", c)
	}
	if output.Paths == nil {
		t.Fatal("expected paths")
	}
	if _, err := os.Stat(output.Paths.Table); err != nil {
		t.Errorf("diff table not written: %v", err)
	}
}

func TestDiffCommand_DryRunWithFields(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)

	out, err := runCLI(t, database, cfg, "diff", "--source=books_static", "--fields=category", "--dry-run")
	if err != nil {
		t.Fatalf("diff command failed: %v", err)
	}

	var output ops.DiffOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Summary.Counts.Modified != 0 {
		t.Errorf("modified = %d, want 0 with category-only comparison", output.Summary.Counts.Modified)
	}
	if output.Paths != nil {
		t.Error("dry run should not write reports")
	}
	if _, err := os.Stat(cfg.ReportDir); !os.IsNotExist(err) {
		t.Errorf("report dir should not exist after dry run, stat err = %v", err)
	}
}

func TestDiffCommand_Errors(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown source", []string{"diff", "--source=udn_sports"}, "[UNKNOWN_SOURCE]"},
		{"bad format", []string{"diff", "--source=books_static", "--format=pdf"}, "[INVALID_REQUEST]"},
		{"missing source flag", []string{"diff"}, "source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, database, cfg, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDiffCommand_MissingSnapshotSkips(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)

	out, err := runCLI(t, database, cfg, "diff", "--source=books_static", "--new="+filepath.Join(t.TempDir(), "gone.csv"))
	if err != nil {
		t.Fatalf("diff command failed: %v", err)
	}

	var output ops.DiffOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Status != ops.StatusSkipped {
		t.Errorf("status = %q, want skipped", output.Status)
	}
}

func TestBatchCommand(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)

	t.Run("all ok", func(t *testing.T) {
		out, err := runCLI(t, database, cfg, "batch", "--source=books_static", "--dry-run")
		if err != nil {
			t.Fatalf("batch command failed: %v", err)
		}
		var output ops.BatchOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if output.OK != 1 || len(output.Items) != 1 {
			t.Errorf("ok=%d items=%d, want 1/1", output.OK, len(output.Items))
		}
	})

	t.Run("failed source exits non-zero after output", func(t *testing.T) {
		out, err := runCLI(t, database, cfg, "batch", "--source=books_static", "--source=nope", "--dry-run")
		if err == nil {
			t.Fatal("expected error when a source fails")
		}
		var output ops.BatchOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if output.OK != 1 || output.Failed != 1 {
			t.Errorf("ok=%d failed=%d, want 1/1", output.OK, output.Failed)
		}
		if output.Items[1].Error["code"] != string(errors.ErrUnknownSource) {
			t.Errorf("items[1].error.code = %v, want UNKNOWN_SOURCE", output.Items[1].Error["code"])
		}
	})

	t.Run("negative concurrency", func(t *testing.T) {
		_, err := runCLI(t, database, cfg, "batch", "--concurrency=-1")
		if err == nil || !strings.Contains(err.Error(), "[INVALID_REQUEST]") {
			t.Errorf("error = %v, want INVALID_REQUEST", err)
		}
	})
}

func TestIndexAndSearchCommands(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)

	_, err := runCLI(t, database, cfg, "search", "--source=books_static", "--q=a")
	if err == nil || !strings.Contains(err.Error(), "[NOT_FOUND]") {
		t.Fatalf("search before index: error = %v, want NOT_FOUND", err)
	}

	out, err := runCLI(t, database, cfg, "index", "--source=books_static")
	if err != nil {
		t.Fatalf("index command failed: %v", err)
	}
	var indexed ops.IndexOutput
	if err := json.Unmarshal([]byte(out), &indexed); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if indexed.RecordCount != 3 {
		t.Errorf("record_count = %d, want 3", indexed.RecordCount)
	}

	out, err = runCLI(t, database, cfg, "search", "--source=books_static", "--q=b2")
	if err != nil {
		t.Fatalf("search command failed: %v", err)
	}
	var found ops.SearchOutput
	if err := json.Unmarshal([]byte(out), &found); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(found.Items) != 1 || found.Items[0].ID != "2" {
		t.Errorf("items = %+v, want record 2", found.Items)
	}

	out, err = runCLI(t, database, cfg, "search", "--source=books_static", "--limit=2")
	if err != nil {
		t.Fatalf("search command failed: %v", err)
	}
	found = ops.SearchOutput{}
	if err := json.Unmarshal([]byte(out), &found); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(found.Items) != 2 || !found.Pagination.HasMore || found.Pagination.Total != 3 {
		t.Errorf("pagination = %+v with %d items, want 2 of 3 and has_more", found.Pagination, len(found.Items))
	}

	if _, err := runCLI(t, database, cfg, "index", "--source=books_static", "--drop"); err != nil {
		t.Fatalf("index --drop failed: %v", err)
	}
	_, err = runCLI(t, database, cfg, "index", "--source=books_static", "--drop")
	if err == nil || !strings.Contains(err.Error(), "[NOT_FOUND]") {
		t.Errorf("second drop: error = %v, want NOT_FOUND", err)
	}
}

func TestSummaryCommand(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)

	_, err := runCLI(t, database, cfg, "summary", "--source=books_static")
	if err == nil || !strings.Contains(err.Error(), "[NOT_FOUND]") {
		t.Fatalf("summary before diff: error = %v, want NOT_FOUND", err)
	}

	if _, err := runCLI(t, database, cfg, "diff", "--source=books_static"); err != nil {
		t.Fatalf("diff command failed: %v", err)
	}

	out, err := runCLI(t, database, cfg, "summary", "--source=books_static")
	if err != nil {
		t.Fatalf("summary command failed: %v", err)
	}
	var output ops.SummaryOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Summary.Source != "books_static" || output.Summary.Counts.Added != 1 {
		t.Errorf("summary = %+v", output.Summary)
	}

	out, err = runCLI(t, database, cfg, "summary", "--source=books_static", "--markdown")
	if err != nil {
		t.Fatalf("summary --markdown failed: %v", err)
	}
	if !strings.HasPrefix(out, "## books_static") {
		t.Errorf("markdown output = %q, want heading first", out)
	}

	_, err = runCLI(t, database, cfg, "summary", "--source=nope")
	if err == nil || !strings.Contains(err.Error(), "[UNKNOWN_SOURCE]") {
		t.Errorf("error = %v, want UNKNOWN_SOURCE", err)
	}
}

func TestServeCommand_InvalidPort(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := runCLI(t, database, testConfig(t), "serve", "--port=0")
	if err == nil || !strings.Contains(err.Error(), "[INVALID_REQUEST]") {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestVersionWithoutDependencies(t *testing.T) {
	out, err := runCLI(t, nil, nil, "--version")
	if err != nil {
		t.Fatalf("--version failed: %v", err)
	}
	if !strings.Contains(out, Version) {
		t.Errorf("version output = %q, want it to contain %q", out, Version)
	}
}
