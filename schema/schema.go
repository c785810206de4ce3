// Package schema holds the dialect-neutral description of a database that
// flows between introspection, type mapping, DDL emission, row copying, and
// trigger synthesis. Nothing in this package talks to a driver.
package schema

import "fmt"

// CaseSensitivity is a 3-valued flag: a column's collation either is known
// to be case sensitive, known to be case insensitive, or unknown. Absent
// collation information must never be silently treated as insensitive, so
// the zero value means "unknown", not "false".
type CaseSensitivity int

const (
	CaseSensitivityUnknown CaseSensitivity = iota
	CaseSensitivityTrue
	CaseSensitivityFalse
)

// Column is one table column after source-type-token normalization (the
// stored SourceType is already the SQLite-friendly token from typemap.MapType).
type Column struct {
	Name          string
	SourceType    string // lowercased, already mapped by typemap
	Length        int    // 0 = unspecified
	Nullable      bool
	DefaultExpr   string // empty = no default
	IsIdentity    bool
	CaseSensitive CaseSensitivity
}

// Table is one base table, in source ordinal order.
type Table struct {
	Name        string
	SchemaName  string
	Columns     []Column
	PrimaryKey  []string // column names, ordered
	ForeignKeys []ForeignKey
	Indexes     []Index
}

// Column looks up a column by name, or returns false.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ForeignKey is one referential constraint.
type ForeignKey struct {
	TableName        string
	ColumnName       string
	ForeignTableName string
	ForeignColumn    string
	CascadeOnDelete  bool
	IsNullable       bool // mirrors the owning column's nullability
}

// IndexColumn is one column participating in an Index, in stored order.
type IndexColumn struct {
	ColumnName string
	Ascending  bool
}

// Index is a non-primary-key index (primary keys are carried on Table).
type Index struct {
	Name      string
	IsUnique  bool
	Columns   []IndexColumn
	TableName string
}

// View is a source view, after dialect-neutralizing rewrites.
type View struct {
	Name string
	SQL  string
}

// TriggerTiming is Before or After.
type TriggerTiming int

const (
	Before TriggerTiming = iota
	After
)

func (t TriggerTiming) String() string {
	if t == Before {
		return "BEFORE"
	}
	return "AFTER"
}

// TriggerEvent is Insert, Update, or Delete.
type TriggerEvent int

const (
	Insert TriggerEvent = iota
	Update
	Delete
)

func (e TriggerEvent) String() string {
	switch e {
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	default:
		return "DELETE"
	}
}

// Trigger is a synthesized or source-native trigger.
type Trigger struct {
	Name    string
	Timing  TriggerTiming
	Event   TriggerEvent
	Table   string
	Body    string // raw SQL fragment executed inside BEGIN ... END
}

// Database is the full dialect-neutral schema produced by introspection.
type Database struct {
	Tables []Table
	Views  []View
}

// Table looks up a table by name, or returns false.
func (d *Database) Table(name string) (*Table, bool) {
	for i := range d.Tables {
		if d.Tables[i].Name == name {
			return &d.Tables[i], true
		}
	}
	return nil, false
}

// Validate checks that every primary-key and index column name exists on
// its owning table, and that every foreign key's owning column exists (the
// referenced table's existence is checked later, at DDL emission).
func (d *Database) Validate() error {
	for _, t := range d.Tables {
		for _, pk := range t.PrimaryKey {
			if _, ok := t.Column(pk); !ok {
				return fmt.Errorf("schema: table %q: primary key column %q not found", t.Name, pk)
			}
		}
		for _, idx := range t.Indexes {
			for _, ic := range idx.Columns {
				if _, ok := t.Column(ic.ColumnName); !ok {
					return fmt.Errorf("schema: table %q: index %q references unknown column %q", t.Name, idx.Name, ic.ColumnName)
				}
			}
		}
		for _, fk := range t.ForeignKeys {
			if _, ok := t.Column(fk.ColumnName); !ok {
				return fmt.Errorf("schema: table %q: foreign key references unknown owning column %q", t.Name, fk.ColumnName)
			}
		}
	}
	return nil
}

// ValidateForeignKeyTargets checks that every foreign key's referenced
// table exists. This is deliberately separate from Validate: the check
// happens only at DDL emission, not during introspection (a source
// database with a dangling FK is still introspectable).
func (d *Database) ValidateForeignKeyTargets() error {
	for _, t := range d.Tables {
		for _, fk := range t.ForeignKeys {
			ft, ok := d.Table(fk.ForeignTableName)
			if !ok {
				return fmt.Errorf("schema: foreign key %s.%s references unknown table %q", t.Name, fk.ColumnName, fk.ForeignTableName)
			}
			if _, ok := ft.Column(fk.ForeignColumn); !ok {
				return fmt.Errorf("schema: foreign key %s.%s references unknown column %s.%s", t.Name, fk.ColumnName, fk.ForeignTableName, fk.ForeignColumn)
			}
		}
	}
	return nil
}
