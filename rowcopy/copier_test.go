package rowcopy

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/w8tcha/mssql2sqlite/schema"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedSourceTable(t *testing.T, db *sql.DB, rows int) {
	t.Helper()
	if _, err := db.Exec("CREATE TABLE widgets (id integer, name text);"); err != nil {
		t.Fatalf("create source table: %v", err)
	}
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin seed tx: %v", err)
	}
	stmt, err := tx.Prepare("INSERT INTO widgets (id, name) VALUES (?, ?);")
	if err != nil {
		t.Fatalf("prepare seed insert: %v", err)
	}
	for i := 0; i < rows; i++ {
		if _, err := stmt.Exec(i, "widget"); err != nil {
			t.Fatalf("seed insert: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit seed tx: %v", err)
	}
}

func widgetsTable() schema.Table {
	return schema.Table{
		Name: "widgets",
		Columns: []schema.Column{
			{Name: "id", SourceType: "integer"},
			{Name: "name", SourceType: "varchar"},
		},
	}
}

func TestCopyTableCopiesAllRows(t *testing.T) {
	source := openMemDB(t)
	seedSourceTable(t, source, 5)
	dest := openMemDB(t)
	if _, err := dest.Exec("CREATE TABLE widgets (id integer, name text);"); err != nil {
		t.Fatalf("create dest table: %v", err)
	}

	copier := &Copier{Source: source, Dest: dest}
	if err := copier.CopyTable(context.Background(), widgetsTable()); err != nil {
		t.Fatalf("CopyTable: %v", err)
	}

	var count int
	if err := dest.QueryRow("SELECT COUNT(*) FROM widgets;").Scan(&count); err != nil {
		t.Fatalf("count dest rows: %v", err)
	}
	if count != 5 {
		t.Errorf("copied %d rows, want 5", count)
	}
}

// TestCopyTableCancellationMidCopy exercises boundary scenario 9: after 2500
// rows of a 10000-row table, cancellation aborts at the next 1000-row
// checkpoint, leaving 2000 committed rows (the third batch rolls back).
func TestCopyTableCancellationMidCopy(t *testing.T) {
	source := openMemDB(t)
	seedSourceTable(t, source, 10000)
	dest := openMemDB(t)
	if _, err := dest.Exec("CREATE TABLE widgets (id integer, name text);"); err != nil {
		t.Fatalf("create dest table: %v", err)
	}

	// Cancel is polled once per 1000-row commit checkpoint. A cancellation
	// requested at row 2500 is observed at the next checkpoint, row 3000 —
	// the third call to Cancel — so the third batch (rows 2001-3000) rolls
	// back and only the first two batches (2000 rows) remain committed.
	checkpoint := 0
	copier := &Copier{
		Source: source,
		Dest:   dest,
		Cancel: func() bool {
			checkpoint++
			return checkpoint >= 3
		},
	}

	err := copier.CopyTable(context.Background(), widgetsTable())
	if err != ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}

	var count int
	if err := dest.QueryRow("SELECT COUNT(*) FROM widgets;").Scan(&count); err != nil {
		t.Fatalf("count dest rows: %v", err)
	}
	if count != 2000 {
		t.Errorf("committed %d rows after cancellation, want 2000", count)
	}
}

func TestSanitizeParamNamesReplacesInvalidCharsAndDeduplicates(t *testing.T) {
	got := sanitizeParamNames([]string{"first name", "first_name", "first-name"})
	want := []string{"first_name", "first_name_", "first_name__"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sanitizeParamNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSanitizeParamNamesIsDeterministic(t *testing.T) {
	cols := []string{"a b", "a-b", "a b"}
	first := sanitizeParamNames(cols)
	second := sanitizeParamNames(cols)
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("sanitizeParamNames not deterministic at index %d: %q vs %q", i, first[i], second[i])
		}
	}
}
