package rowcopy

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/w8tcha/mssql2sqlite/schema"
)

const batchSize = 1000

// Progress is reported once per committed batch.
type Progress func(table string, rowsCopied int)

// CancelFunc reports whether the run has been asked to stop. It is polled
// at every checkpoint of the copy loop: between tables, and every
// 1000-row commit.
type CancelFunc func() bool

// ErrCancelled is returned when CancelFunc reports true at a checkpoint.
var ErrCancelled = fmt.Errorf("rowcopy: cancelled")

// Copier streams row data from source into dest for each table of a
// schema.Database.
type Copier struct {
	Source   *sql.DB
	Dest     *sql.DB
	Cancel   CancelFunc
	Progress Progress
}

// CopyAll copies every table's rows, in the order they appear in db.Tables.
// Cancellation is checked before each table.
func (c *Copier) CopyAll(ctx context.Context, db *schema.Database) error {
	for _, t := range db.Tables {
		if c.Cancel != nil && c.Cancel() {
			return ErrCancelled
		}
		if err := c.CopyTable(ctx, t); err != nil {
			return fmt.Errorf("rowcopy: table %q: %w", t.Name, err)
		}
	}
	return nil
}

// CopyTable runs the per-table copy loop: open a transaction, stream rows
// from source in natural retrieval order, bind each value through Coerce
// into a prepared INSERT, commit every 1000 rows and at end of table,
// checking cancellation at every commit boundary.
func (c *Copier) CopyTable(ctx context.Context, t schema.Table) error {
	colNames := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		colNames[i] = col.Name
	}

	bracketed := make([]string, len(colNames))
	for i, n := range colNames {
		bracketed[i] = "[" + n + "]"
	}
	from := "[" + t.Name + "]"
	if t.SchemaName != "" {
		from = t.SchemaName + "." + from
	}
	selectQuery := fmt.Sprintf("SELECT %s FROM %s", strings.Join(bracketed, ", "), from)

	rows, err := c.Source.QueryContext(ctx, selectQuery)
	if err != nil {
		return fmt.Errorf("select from source: %w", err)
	}
	defer rows.Close()

	paramNames := sanitizeParamNames(colNames)
	insertQuery := buildInsertQuery(t.Name, bracketed, paramNames)

	affinities := make([]Affinity, len(t.Columns))
	for i, col := range t.Columns {
		a, err := AffinityFor(col.SourceType)
		if err != nil {
			return err
		}
		affinities[i] = a
	}

	tx, err := c.Dest.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}

	scanDest := make([]any, len(colNames))
	scanBuf := make([]any, len(colNames))
	for i := range scanBuf {
		scanDest[i] = &scanBuf[i]
	}

	rowsInBatch := 0
	totalRows := 0
	for rows.Next() {
		if err := rows.Scan(scanDest...); err != nil {
			tx.Rollback()
			return fmt.Errorf("scan row: %w", err)
		}

		args := make([]any, len(scanBuf))
		for i, v := range scanBuf {
			coerced, err := Coerce(v, affinities[i])
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("coerce column %q: %w", colNames[i], err)
			}
			args[i] = sql.Named(paramNames[i], coerced)
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert row: %w", err)
		}

		rowsInBatch++
		totalRows++
		if rowsInBatch == batchSize {
			if c.Cancel != nil && c.Cancel() {
				tx.Rollback()
				return ErrCancelled
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("commit batch: %w", err)
			}
			if c.Progress != nil {
				c.Progress(t.Name, totalRows)
			}

			tx, err = c.Dest.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin next transaction: %w", err)
			}
			stmt, err = tx.PrepareContext(ctx, insertQuery)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("prepare insert: %w", err)
			}
			rowsInBatch = 0
		}
	}
	if err := rows.Err(); err != nil {
		tx.Rollback()
		return fmt.Errorf("iterate rows: %w", err)
	}

	if c.Cancel != nil && c.Cancel() {
		tx.Rollback()
		return ErrCancelled
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit final batch: %w", err)
	}
	if c.Progress != nil {
		c.Progress(t.Name, totalRows)
	}
	return nil
}

func buildInsertQuery(table string, bracketedCols, paramNames []string) string {
	placeholders := make([]string, len(paramNames))
	for i, p := range paramNames {
		placeholders[i] = "@" + p
	}
	return fmt.Sprintf("INSERT INTO [%s] (%s) VALUES (%s)",
		table, strings.Join(bracketedCols, ", "), strings.Join(placeholders, ", "))
}

var nonIdentChar = regexp.MustCompile(`[^A-Za-z0-9_]`)

// sanitizeParamNames normalizes column names into SQL parameter names:
// every non-alphanumeric, non-underscore character is replaced with "_",
// and collisions within the same statement are resolved by suffixing "_"
// until unique. The "@" prefix is applied by the caller (buildInsertQuery),
// keeping this function a pure, deterministic name -> name transform.
func sanitizeParamNames(colNames []string) []string {
	seen := make(map[string]bool, len(colNames))
	out := make([]string, len(colNames))
	for i, name := range colNames {
		sanitized := nonIdentChar.ReplaceAllString(name, "_")
		for seen[sanitized] {
			sanitized += "_"
		}
		seen[sanitized] = true
		out[i] = sanitized
	}
	return out
}
