package sqlitegen

import (
	"fmt"

	"github.com/w8tcha/mssql2sqlite/schema"
)

// SynthesizeTriggers builds the insert/update/delete FK-emulation triggers
// for fk. Three triggers are always produced: insert and update fire
// BEFORE on the owning table, delete fires BEFORE on the referenced table.
func SynthesizeTriggers(fk schema.ForeignKey) []schema.Trigger {
	insertName := triggerName("fki", fk)
	updateName := triggerName("fku", fk)
	deleteName := triggerName("fkd", fk)

	return []schema.Trigger{
		{
			Name:   insertName,
			Timing: schema.Before,
			Event:  schema.Insert,
			Table:  fk.TableName,
			Body:   referentialCheckBody(fk, insertName, "insert", "NEW"),
		},
		{
			Name:   updateName,
			Timing: schema.Before,
			Event:  schema.Update,
			Table:  fk.TableName,
			Body:   referentialCheckBody(fk, updateName, "update", "NEW"),
		},
		{
			Name:   deleteName,
			Timing: schema.Before,
			Event:  schema.Delete,
			Table:  fk.ForeignTableName,
			Body:   deleteBody(fk, deleteName),
		},
	}
}

func triggerName(prefix string, fk schema.ForeignKey) string {
	return fmt.Sprintf("%s_%s_%s_%s_%s", prefix, fk.TableName, fk.ColumnName, fk.ForeignTableName, fk.ForeignColumn)
}

// referentialCheckBody builds the insert/update trigger body: a ROLLBACK
// raised unless the referenced row exists. If the owning column is
// nullable, the check is guarded so a NULL value never triggers a lookup —
// the guard text is " NEW.<col> IS NOT NULL AND " verbatim, matching
// boundary scenario 5.
func referentialCheckBody(fk schema.ForeignKey, triggerName, verb, rowVar string) string {
	guard := ""
	if fk.IsNullable {
		guard = fmt.Sprintf(" %s.%s IS NOT NULL AND ", rowVar, fk.ColumnName)
	} else {
		guard = " "
	}
	return fmt.Sprintf(
		"SELECT RAISE(ROLLBACK, '%s on table \"%s\" violates foreign key constraint \"%s\"') WHERE%s(SELECT [%s] FROM [%s] WHERE [%s] = %s.%s) IS NULL;",
		verb, fk.TableName, triggerName, guard, fk.ForeignColumn, fk.ForeignTableName, fk.ForeignColumn, rowVar, fk.ColumnName,
	)
}

// deleteBody builds the delete trigger body on the referenced table: a
// cascading FK deletes the referencing rows (boundary scenario 6); a
// non-cascading FK raises ROLLBACK if any referencing row still exists.
func deleteBody(fk schema.ForeignKey, triggerName string) string {
	if fk.CascadeOnDelete {
		return fmt.Sprintf("DELETE FROM [%s] WHERE %s = OLD.%s;", fk.TableName, fk.ColumnName, fk.ForeignColumn)
	}
	return fmt.Sprintf(
		"SELECT RAISE(ROLLBACK, 'delete on table \"%s\" violates foreign key constraint \"%s\"') WHERE (SELECT [%s] FROM [%s] WHERE [%s] = OLD.%s) IS NOT NULL;",
		fk.ForeignTableName, triggerName, fk.ColumnName, fk.TableName, fk.ColumnName, fk.ForeignColumn,
	)
}

// RenderTrigger renders a Trigger as a CREATE TRIGGER statement:
// `CREATE TRIGGER [name] {timing} {event} ON [table] BEGIN {body} END;`.
func RenderTrigger(tr schema.Trigger) string {
	return fmt.Sprintf("CREATE TRIGGER [%s] %s %s ON [%s] BEGIN %s END;",
		tr.Name, tr.Timing, tr.Event, tr.Table, tr.Body)
}
