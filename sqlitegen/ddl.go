// Package sqlitegen renders a dialect-neutral schema.Database into SQLite
// DDL text: CREATE TABLE, CREATE INDEX, CREATE VIEW, and the FK-emulation
// triggers (in trigger.go).
//
// This is a pure text-builder package, grounded on database/mssql/database.go's
// buildDumpTableDDL (strings.Builder, tab-indented column lines, conditional
// clause append) — no SQL is parsed, only assembled.
package sqlitegen

import (
	"fmt"
	"strings"

	"github.com/w8tcha/mssql2sqlite/schema"
	"github.com/w8tcha/mssql2sqlite/typemap"
)

const indent = "\t"

// RenderTable renders the CREATE TABLE statement for t.
func RenderTable(t schema.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE [%s] (\n", t.Name)

	autoincrementCol := ""
	if len(t.PrimaryKey) == 1 {
		if col, ok := t.Column(t.PrimaryKey[0]); ok && col.IsIdentity {
			if auto, _ := typemap.DecideIdentity(true, col.SourceType, 1); auto {
				autoincrementCol = col.Name
			}
		}
	}

	lines := make([]string, 0, len(t.Columns)+1+len(t.ForeignKeys))
	for _, c := range t.Columns {
		lines = append(lines, renderColumn(c, c.Name == autoincrementCol))
	}
	if len(t.PrimaryKey) >= 1 && autoincrementCol == "" {
		quoted := make([]string, len(t.PrimaryKey))
		for i, name := range t.PrimaryKey {
			quoted[i] = "[" + name + "]"
		}
		lines = append(lines, "PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}
	for _, fk := range t.ForeignKeys {
		lines = append(lines, fmt.Sprintf("FOREIGN KEY ([%s]) REFERENCES [%s]([%s])",
			fk.ColumnName, fk.ForeignTableName, fk.ForeignColumn))
	}

	for i, line := range lines {
		b.WriteString(indent)
		b.WriteString(line)
		if i < len(lines)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")
	return b.String()
}

func renderColumn(c schema.Column, autoincrement bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", c.Name)

	typeName := c.SourceType
	if autoincrement || c.IsIdentity {
		// Identity columns are always emitted as "integer", the stored type
		// typemap.DecideIdentity yields for them, whether or not they
		// autoincrement.
		typeName = "integer"
	} else if typeName == "int" {
		// Non-identity `int` columns are rewritten to `integer` only here,
		// at emission time.
		typeName = "integer"
	}
	b.WriteString(typeName)

	if c.Length > 0 {
		fmt.Fprintf(&b, "(%d)", c.Length)
	}
	if autoincrement {
		b.WriteString(" PRIMARY KEY AUTOINCREMENT")
	}
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.CaseSensitive == schema.CaseSensitivityFalse {
		b.WriteString(" COLLATE NOCASE")
	}

	normalized := typemap.NormalizeDefault(c.DefaultExpr, c.SourceType)
	if typemap.ShouldEmitDefault(normalized) {
		fmt.Fprintf(&b, " DEFAULT %s", normalized)
	}

	return b.String()
}

// RenderIndex renders one CREATE INDEX statement.
func RenderIndex(idx schema.Index) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if idx.IsUnique {
		b.WriteString("UNIQUE ")
	}
	fmt.Fprintf(&b, "INDEX [%s_%s] ON [%s] (", idx.TableName, idx.Name, idx.TableName)

	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		col := "[" + c.ColumnName + "]"
		if !c.Ascending {
			col += " DESC"
		}
		cols[i] = col
	}
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(");")
	return b.String()
}

// ViewFailureHandler is consulted when a CREATE VIEW statement fails to
// execute. It returns a replacement DDL string to retry, or ("", false) to
// discard the view and continue.
type ViewFailureHandler func(v schema.View, execErr error) (replacement string, retry bool)

// ExecFunc executes one DDL statement against the destination connection.
type ExecFunc func(ddl string) error

// CreateView executes v's verbatim source DDL, consulting handler on
// failure (recursively). When the handler declines to retry, the view is
// discarded and nil is returned; when no handler is installed, the failure
// is returned as an error.
func CreateView(v schema.View, exec ExecFunc, handler ViewFailureHandler) error {
	err := exec(v.SQL)
	if err == nil {
		return nil
	}
	if handler == nil {
		return fmt.Errorf("sqlitegen: create view %q failed: %w", v.Name, err)
	}
	replacement, retry := handler(v, err)
	if !retry {
		return nil // discarded
	}
	return CreateView(schema.View{Name: v.Name, SQL: replacement}, exec, handler)
}
