// Package introspect reads SQL Server catalog metadata into a dialect-
// neutral schema.Database. Its query style — fmt.Sprintf'd T-SQL, db.Query,
// rows.Scan into local variables — follows the reference MSSQL driver
// layer, issuing the catalog surface this conversion tool needs:
// sys.objects/sys.columns for tables and columns, sp_pkeys for primary
// keys, sp_tablecollations for case sensitivity, sp_helpindex for indexes,
// an INFORMATION_SCHEMA join for foreign keys, and sys.views/sys.sql_modules
// for views.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/w8tcha/mssql2sqlite/schema"
	"github.com/w8tcha/mssql2sqlite/typemap"
	"github.com/w8tcha/mssql2sqlite/util"
)

// ProgressFunc is called after each table (0-50%) and each view (50-100%).
type ProgressFunc func(percent int, message string)

// CancelFunc reports whether the run has been asked to stop.
type CancelFunc func() bool

// ErrCancelled is returned from Introspect when CancelFunc reports true.
var ErrCancelled = fmt.Errorf("introspect: cancelled")

type tableRef struct {
	schemaName string
	name       string
}

func (t tableRef) qualified() string {
	return fmt.Sprintf("[%s].[%s]", t.schemaName, t.name)
}

// Introspector reads the source catalog over an open *sql.DB.
type Introspector struct {
	DB       *sql.DB
	Progress ProgressFunc
	Cancel   CancelFunc
}

// Open dials the source server using cfg and wraps it in an Introspector.
func Open(cfg Config) (*Introspector, error) {
	db, err := sql.Open("sqlserver", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("introspect: open source: %w", err)
	}
	return &Introspector{DB: db}, nil
}

func (in *Introspector) report(percent int, message string) {
	if in.Progress != nil {
		in.Progress(percent, message)
	}
}

func (in *Introspector) cancelled() bool {
	return in.Cancel != nil && in.Cancel()
}

// Introspect reads the full catalog in a fixed query sequence: tables, then
// each table's columns/primary key/collation/indexes/foreign keys, then
// views.
func (in *Introspector) Introspect(ctx context.Context) (*schema.Database, error) {
	refs, err := in.tableRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect: list tables: %w", err)
	}

	db := &schema.Database{}
	for i, ref := range refs {
		if in.cancelled() {
			return nil, ErrCancelled
		}

		table, err := in.introspectTable(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("introspect: table %s: %w", ref.qualified(), err)
		}
		db.Tables = append(db.Tables, *table)

		percent := (i + 1) * 50 / max(len(refs), 1)
		in.report(percent, fmt.Sprintf("introspected table %s", ref.qualified()))
	}

	views, err := in.views(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect: views: %w", err)
	}
	for i, v := range views {
		if in.cancelled() {
			return nil, ErrCancelled
		}
		db.Views = append(db.Views, v)
		percent := 50 + (i+1)*50/max(len(views), 1)
		in.report(percent, fmt.Sprintf("introspected view %s", v.Name))
	}

	return db, nil
}

func (in *Introspector) tableRefs(ctx context.Context) ([]tableRef, error) {
	rows, err := in.DB.QueryContext(ctx,
		`SELECT schema_name(schema_id) AS table_schema, name FROM sys.objects WHERE type = 'U';`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []tableRef
	for rows.Next() {
		var ref tableRef
		if err := rows.Scan(&ref.schemaName, &ref.name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (in *Introspector) introspectTable(ctx context.Context, ref tableRef) (*schema.Table, error) {
	columns, err := in.columns(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	pk, err := in.primaryKey(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("primary key: %w", err)
	}

	caseSensitive, err := in.collation(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("collation: %w", err)
	}
	for i, col := range columns {
		if cs, ok := caseSensitive[col.Name]; ok {
			columns[i].CaseSensitive = cs
		}
	}

	// The per-table index query's failure is a logged warning, not fatal
	// (spec.md §7): the table proceeds with an empty index list.
	indexes, err := in.indexes(ctx, ref)
	if err != nil {
		slog.Warn("introspect: index query failed; continuing without indexes", "table", ref.qualified(), "error", err)
		indexes = nil
	}

	fks, err := in.foreignKeys(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("foreign keys: %w", err)
	}
	nullable := make(map[string]bool, len(columns))
	for _, col := range columns {
		nullable[col.Name] = col.Nullable
	}
	for i := range fks {
		fks[i].IsNullable = nullable[fks[i].ColumnName]
	}

	return &schema.Table{
		Name:        ref.name,
		SchemaName:  ref.schemaName,
		Columns:     columns,
		PrimaryKey:  pk,
		ForeignKeys: fks,
		Indexes:     indexes,
	}, nil
}

func (in *Introspector) columns(ctx context.Context, ref tableRef) ([]schema.Column, error) {
	query := fmt.Sprintf(`SELECT
	c.name,
	tp.name AS type_name,
	c.max_length,
	c.is_nullable,
	c.is_identity,
	OBJECT_DEFINITION(c.default_object_id) AS default_definition
FROM sys.columns c
JOIN sys.types tp ON c.user_type_id = tp.user_type_id
WHERE c.object_id = OBJECT_ID('%s.%s', 'U')
ORDER BY c.column_id;`, ref.schemaName, ref.name)

	rows, err := in.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var name, sourceType string
		var maxLength int
		var nullable, identity bool
		var defaultExpr sql.NullString
		if err := rows.Scan(&name, &sourceType, &maxLength, &nullable, &identity, &defaultExpr); err != nil {
			return nil, err
		}

		mapped, err := typemap.MapType(strings.ToLower(sourceType))
		if err != nil {
			return nil, err
		}

		columns = append(columns, schema.Column{
			Name:        name,
			SourceType:  mapped,
			Length:      maxLength,
			Nullable:    nullable,
			DefaultExpr: defaultExpr.String,
			IsIdentity:  identity,
		})
	}
	return columns, rows.Err()
}

// primaryKey calls the ODBC catalog procedure sp_pkeys, KEY_SEQ-ordered, per
// spec.md §4.1 step 3.
func (in *Introspector) primaryKey(ctx context.Context, ref tableRef) ([]string, error) {
	rows, err := in.DB.QueryContext(ctx,
		"EXEC sp_pkeys @table_name = ?, @table_owner = ?;", ref.name, ref.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	colIdx, keySeqIdx := -1, -1
	for i, c := range cols {
		switch strings.ToUpper(c) {
		case "COLUMN_NAME":
			colIdx = i
		case "KEY_SEQ":
			keySeqIdx = i
		}
	}

	type pkCol struct {
		name   string
		keySeq int
	}
	var pkCols []pkCol
	for rows.Next() {
		raw := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		name, _ := raw[colIdx].(string)
		seq := 0
		if keySeqIdx >= 0 {
			seq, _ = toIntLoose(raw[keySeqIdx])
		}
		pkCols = append(pkCols, pkCol{name: name, keySeq: seq})
	}
	sort.Slice(pkCols, func(i, j int) bool { return pkCols[i].keySeq < pkCols[j].keySeq })

	names := util.TransformSlice(pkCols, func(c pkCol) string { return c.name })
	return names, rows.Err()
}

func toIntLoose(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case int16:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

// tdsCaseInsensitiveBit is bit 4 of byte 2 of the tds_collation mask
// returned by sp_tablecollations, per spec.md §4.1 step 4.
const tdsCaseInsensitiveBit = 0x10

// collation calls sp_tablecollations and extracts case sensitivity from the
// returned collation mask. A column absent from the result, or with a null
// mask, is left at schema.CaseSensitivityUnknown by the caller (the zero
// value of the map lookup never appears here, because this function never
// inserts an entry for such columns).
func (in *Introspector) collation(ctx context.Context, ref tableRef) (map[string]schema.CaseSensitivity, error) {
	rows, err := in.DB.QueryContext(ctx,
		"EXEC sp_tablecollations @tablename = ?;", fmt.Sprintf("[%s].[%s]", ref.schemaName, ref.name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	nameIdx, maskIdx := -1, -1
	for i, c := range cols {
		switch strings.ToLower(c) {
		case "name":
			nameIdx = i
		case "tds_collation":
			maskIdx = i
		}
	}

	result := make(map[string]schema.CaseSensitivity)
	for rows.Next() {
		raw := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		name, _ := raw[nameIdx].(string)
		if name == "" {
			continue
		}
		mask, ok := raw[maskIdx].([]byte)
		if !ok || len(mask) < 2 {
			continue
		}
		if mask[1]&tdsCaseInsensitiveBit != 0 {
			result[name] = schema.CaseSensitivityFalse
		} else {
			result[name] = schema.CaseSensitivityTrue
		}
	}
	return result, rows.Err()
}

var (
	uniqueFlagPattern = regexp.MustCompile(`(?i)\bunique\b`)
	primaryKeyPattern = regexp.MustCompile(`(?i)primary key`)
	indexKeyPattern   = regexp.MustCompile(`^\s*([A-Za-z0-9_ ]+?)\s*(\(-\))?\s*$`)
)

// indexes calls sp_helpindex and regex-parses its two free-text columns,
// per spec.md §4.1 step 5 and §9's index-parsing note.
func (in *Introspector) indexes(ctx context.Context, ref tableRef) ([]schema.Index, error) {
	rows, err := in.DB.QueryContext(ctx, "EXEC sp_helpindex ?;", ref.qualified())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var indexName, description, keys string
		if err := rows.Scan(&indexName, &description, &keys); err != nil {
			return nil, err
		}
		if primaryKeyPattern.MatchString(description) {
			continue
		}

		var cols []schema.IndexColumn
		for _, part := range strings.Split(keys, ",") {
			m := indexKeyPattern.FindStringSubmatch(part)
			if m == nil {
				continue
			}
			cols = append(cols, schema.IndexColumn{
				ColumnName: strings.TrimSpace(m[1]),
				Ascending:  m[2] != "(-)",
			})
		}

		indexes = append(indexes, schema.Index{
			Name:      indexName,
			IsUnique:  uniqueFlagPattern.MatchString(description),
			Columns:   cols,
			TableName: ref.name,
		})
	}
	return indexes, rows.Err()
}

// foreignKeys joins INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS,
// TABLE_CONSTRAINTS, and KEY_COLUMN_USAGE (once for the owning column, once
// for the referenced column). IsNullable is not read here; introspectTable
// fills it in from the table's own columns.
func (in *Introspector) foreignKeys(ctx context.Context, ref tableRef) ([]schema.ForeignKey, error) {
	query := `SELECT
	kcu.COLUMN_NAME,
	kcu2.TABLE_NAME AS foreign_table,
	kcu2.COLUMN_NAME AS foreign_column,
	rc.DELETE_RULE
FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
JOIN INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
	ON tc.CONSTRAINT_NAME = rc.CONSTRAINT_NAME
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
	ON kcu.CONSTRAINT_NAME = rc.CONSTRAINT_NAME
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu2
	ON kcu2.CONSTRAINT_NAME = rc.UNIQUE_CONSTRAINT_NAME
WHERE tc.TABLE_SCHEMA = ? AND tc.TABLE_NAME = ?;`

	rows, err := in.DB.QueryContext(ctx, query, ref.schemaName, ref.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	for rows.Next() {
		var column, foreignTable, foreignColumn, deleteRule string
		if err := rows.Scan(&column, &foreignTable, &foreignColumn, &deleteRule); err != nil {
			return nil, err
		}
		fks = append(fks, schema.ForeignKey{
			TableName:        ref.name,
			ColumnName:       column,
			ForeignTableName: foreignTable,
			ForeignColumn:    foreignColumn,
			CascadeOnDelete:  strings.EqualFold(deleteRule, "CASCADE"),
		})
	}
	return fks, rows.Err()
}

var dboPrefix = regexp.MustCompile(`(?i)\bdbo\.`)

// views enumerates sys.views/sys.sql_modules and strips the default-schema
// prefix from each body, per spec.md §4.1's dialect-neutralizing rewrite.
func (in *Introspector) views(ctx context.Context) ([]schema.View, error) {
	const query = `SELECT
	v.name,
	m.definition
FROM sys.views v
JOIN sys.objects o ON o.object_id = v.object_id
JOIN sys.schemas s ON s.schema_id = o.schema_id
JOIN sys.sql_modules m ON m.object_id = o.object_id;`

	rows, err := in.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []schema.View
	for rows.Next() {
		var name, definition string
		if err := rows.Scan(&name, &definition); err != nil {
			return nil, err
		}
		views = append(views, schema.View{
			Name: name,
			SQL:  dboPrefix.ReplaceAllString(definition, ""),
		})
	}
	return views, rows.Err()
}

func (in *Introspector) Close() error {
	return in.DB.Close()
}
