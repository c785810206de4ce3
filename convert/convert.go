// Package convert drives the end-to-end SQL Server -> SQLite conversion,
// wiring introspect through typemap, sqlitegen, and rowcopy behind a
// handler contract the caller supplies.
package convert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"

	"github.com/w8tcha/mssql2sqlite/introspect"
	"github.com/w8tcha/mssql2sqlite/rowcopy"
	"github.com/w8tcha/mssql2sqlite/schema"
	"github.com/w8tcha/mssql2sqlite/sqlitegen"
)

// Options configures a single conversion run. It is the concrete shape of
// spec.md §6's public entry point.
type Options struct {
	Source         introspect.Config
	DestPath       string
	Password       string
	Progress       ProgressHandler
	TableSelection TableSelectionHandler
	ViewFailure    ViewFailureHandler
	CreateTriggers bool
	CreateViews    bool
	Logger         *slog.Logger
}

// Convert validates cfg and, if valid, spawns a background worker that owns
// the entire run and returns immediately. All results flow through
// cfg.Progress. A configuration error is returned synchronously and never
// invokes the progress handler.
func Convert(coord *Coordinator, cfg Options) error {
	if cfg.Source.Host == "" || cfg.Source.DbName == "" {
		return fmt.Errorf("%w: source host and database name are required", ErrConfiguration)
	}
	if cfg.DestPath == "" {
		return fmt.Errorf("%w: destination path is required", ErrConfiguration)
	}
	if cfg.Password != "" {
		// modernc.org/sqlite has no native page-level encryption, unlike the
		// System.Data.SQLite backend an encrypted-destination option assumes.
		return fmt.Errorf("%w: destination password is not supported by the pure-Go sqlite driver", ErrConfiguration)
	}
	if !coord.tryStart() {
		return fmt.Errorf("%w: a conversion is already in progress", ErrConfiguration)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	go run(coord, cfg, logger)
	return nil
}

func run(coord *Coordinator, cfg Options, logger *slog.Logger) {
	defer coord.finish()

	report := func(done, success bool, percent int, message string) {
		level := slog.LevelInfo
		if done && !success {
			level = slog.LevelWarn
		}
		logger.Log(context.Background(), level, message, "done", done, "success", success, "percent", percent)
		if cfg.Progress != nil {
			cfg.Progress(done, success, percent, message)
		}
	}

	if err := convert(coord, cfg, report); err != nil {
		report(true, false, 100, err.Error())
		return
	}
	report(true, true, 100, "conversion complete")
}

func convert(coord *Coordinator, cfg Options, report ProgressHandler) error {
	ctx := context.Background()

	if coord.Cancelled() {
		return ErrCancelled
	}

	// Step 1: delete the destination file if it exists.
	if _, err := os.Stat(cfg.DestPath); err == nil {
		if err := os.Remove(cfg.DestPath); err != nil {
			return fmt.Errorf("%w: remove existing destination: %v", ErrConfiguration, err)
		}
	}

	// Step 2: introspect the source.
	in, err := introspect.Open(cfg.Source)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIntrospection, err)
	}
	defer in.Close()
	in.Cancel = coord.Cancelled
	in.Progress = func(percent int, message string) { report(false, true, percent/2, message) }

	db, err := in.Introspect(ctx)
	if err != nil {
		if errors.Is(err, introspect.ErrCancelled) {
			return ErrCancelled
		}
		return fmt.Errorf("%w: %v", ErrIntrospection, err)
	}

	// Step 3: table-selection handler.
	if cfg.TableSelection != nil {
		if filtered := cfg.TableSelection(db.Tables); filtered != nil {
			db.Tables = filtered
		}
	}
	if err := db.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrIntrospection, err)
	}
	if err := db.ValidateForeignKeyTargets(); err != nil {
		return fmt.Errorf("%w: %v", ErrDDL, err)
	}

	if coord.Cancelled() {
		return ErrCancelled
	}

	// Step 4: create the destination file, apply pragma-like settings. DDL
	// emission gets its own connection, closed before row copy opens a
	// second one on the same file — two live *sql.DB handles on one
	// modernc.org/sqlite file serialize against each other's locks
	// otherwise.
	ddlConn, err := openDestination(cfg.DestPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	// Step 5: DDL emission for tables, 0-50%.
	if err := createTables(ctx, ddlConn, db, report); err != nil {
		ddlConn.Close()
		return err
	}
	if coord.Cancelled() {
		ddlConn.Close()
		return ErrCancelled
	}

	// Step 6: views, if enabled.
	if cfg.CreateViews {
		if err := createViews(ddlConn, db.Views, cfg.ViewFailure); err != nil {
			ddlConn.Close()
			return err
		}
	}
	if err := ddlConn.Close(); err != nil {
		return fmt.Errorf("%w: close ddl connection: %v", ErrDDL, err)
	}
	if coord.Cancelled() {
		return ErrCancelled
	}

	// Step 7: copy rows, on a fresh destination connection.
	destConn, err := sql.Open("sqlite", cfg.DestPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRowCopy, err)
	}
	defer destConn.Close()

	sourceDB, err := sql.Open("sqlserver", cfg.Source.DSN())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRowCopy, err)
	}
	defer sourceDB.Close()

	copier := &rowcopy.Copier{
		Source: sourceDB,
		Dest:   destConn,
		Cancel: coord.Cancelled,
		Progress: func(table string, rows int) {
			report(false, true, 50, fmt.Sprintf("copied %d rows from %s", rows, table))
		},
	}
	if err := copier.CopyAll(ctx, db); err != nil {
		if errors.Is(err, rowcopy.ErrCancelled) {
			return ErrCancelled
		}
		return fmt.Errorf("%w: %v", ErrRowCopy, err)
	}

	// Step 8: triggers, if enabled.
	if cfg.CreateTriggers {
		if err := createTriggers(destConn, db); err != nil {
			return err
		}
	}

	return nil
}

func openDestination(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Page size can only be set on a page-count-zero database, so the
	// pragmas run immediately after opening and before any DDL.
	if _, err := db.Exec("PRAGMA page_size = 4096;"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA encoding = 'UTF-16';"); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func createTables(ctx context.Context, dest *sql.DB, db *schema.Database, report ProgressHandler) error {
	total := len(db.Tables)
	for i, t := range db.Tables {
		ddl := sqlitegen.RenderTable(t)
		if _, err := dest.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("%w: table %q: %v", ErrDDL, t.Name, err)
		}
		for _, idx := range t.Indexes {
			if _, err := dest.ExecContext(ctx, sqlitegen.RenderIndex(idx)); err != nil {
				return fmt.Errorf("%w: index %q: %v", ErrDDL, idx.Name, err)
			}
		}
		report(false, true, (i+1)*50/max1(total), fmt.Sprintf("created table %s", t.Name))
	}
	return nil
}

func createViews(dest *sql.DB, views []schema.View, handler ViewFailureHandler) error {
	exec := func(ddl string) error {
		_, err := dest.Exec(ddl)
		return err
	}
	for _, v := range views {
		if err := sqlitegen.CreateView(v, exec, sqlitegen.ViewFailureHandler(handler)); err != nil {
			return fmt.Errorf("%w: %v", ErrDDL, err)
		}
	}
	return nil
}

func createTriggers(dest *sql.DB, db *schema.Database) error {
	for _, t := range db.Tables {
		for _, fk := range t.ForeignKeys {
			for _, tr := range sqlitegen.SynthesizeTriggers(fk) {
				if _, err := dest.Exec(sqlitegen.RenderTrigger(tr)); err != nil {
					return fmt.Errorf("%w: trigger %q: %v", ErrDDL, tr.Name, err)
				}
			}
		}
	}
	return nil
}

func max1(n int) int {
	if n == 0 {
		return 1
	}
	return n
}
