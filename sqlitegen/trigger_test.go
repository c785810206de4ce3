package sqlitegen

import (
	"strings"
	"testing"

	"github.com/w8tcha/mssql2sqlite/schema"
)

func TestSynthesizeTriggersNullableFKGuard(t *testing.T) {
	fk := schema.ForeignKey{
		TableName:        "T",
		ColumnName:       "parent",
		ForeignTableName: "P",
		ForeignColumn:    "id",
		IsNullable:       true,
	}
	triggers := SynthesizeTriggers(fk)

	var insertTrigger *schema.Trigger
	for i := range triggers {
		if triggers[i].Event == schema.Insert {
			insertTrigger = &triggers[i]
		}
	}
	if insertTrigger == nil {
		t.Fatal("expected an insert trigger")
	}
	if !strings.Contains(insertTrigger.Body, "WHERE NEW.parent IS NOT NULL AND ") {
		t.Errorf("insert trigger body must guard with \" NEW.parent IS NOT NULL AND \", got: %s", insertTrigger.Body)
	}
}

func TestSynthesizeTriggersCascadeDelete(t *testing.T) {
	fk := schema.ForeignKey{
		TableName:        "T",
		ColumnName:       "parent",
		ForeignTableName: "P",
		ForeignColumn:    "id",
		CascadeOnDelete:  true,
	}
	triggers := SynthesizeTriggers(fk)

	var deleteTrigger *schema.Trigger
	for i := range triggers {
		if triggers[i].Event == schema.Delete {
			deleteTrigger = &triggers[i]
		}
	}
	if deleteTrigger == nil {
		t.Fatal("expected a delete trigger")
	}
	want := "DELETE FROM [T] WHERE parent = OLD.id;"
	if deleteTrigger.Body != want {
		t.Errorf("cascade delete trigger body = %q, want %q", deleteTrigger.Body, want)
	}
}

func TestSynthesizeTriggersNonCascadeDeleteRollsBack(t *testing.T) {
	fk := schema.ForeignKey{
		TableName:        "T",
		ColumnName:       "parent",
		ForeignTableName: "P",
		ForeignColumn:    "id",
		CascadeOnDelete:  false,
	}
	triggers := SynthesizeTriggers(fk)
	for _, tr := range triggers {
		if tr.Event == schema.Delete {
			if !strings.Contains(tr.Body, "RAISE(ROLLBACK") {
				t.Errorf("non-cascading delete trigger must ROLLBACK, got: %s", tr.Body)
			}
		}
	}
}

func TestSynthesizeTriggersProduceThreeUniquelyNamedTriggers(t *testing.T) {
	fk := schema.ForeignKey{TableName: "T", ColumnName: "parent", ForeignTableName: "P", ForeignColumn: "id"}
	triggers := SynthesizeTriggers(fk)
	if len(triggers) != 3 {
		t.Fatalf("expected 3 triggers, got %d", len(triggers))
	}
	names := map[string]bool{}
	prefixes := map[string]bool{}
	for _, tr := range triggers {
		if names[tr.Name] {
			t.Errorf("duplicate trigger name %q", tr.Name)
		}
		names[tr.Name] = true
		prefixes[strings.SplitN(tr.Name, "_", 2)[0]] = true
	}
	for _, want := range []string{"fki", "fku", "fkd"} {
		if !prefixes[want] {
			t.Errorf("expected a trigger named with prefix %q", want)
		}
	}
}

func TestSynthesizeTriggersTimingAndTable(t *testing.T) {
	fk := schema.ForeignKey{TableName: "T", ColumnName: "parent", ForeignTableName: "P", ForeignColumn: "id"}
	triggers := SynthesizeTriggers(fk)
	for _, tr := range triggers {
		if tr.Timing != schema.Before {
			t.Errorf("trigger %q must be BEFORE, got %v", tr.Name, tr.Timing)
		}
		switch tr.Event {
		case schema.Insert, schema.Update:
			if tr.Table != "T" {
				t.Errorf("insert/update trigger must be on the owning table, got %q", tr.Table)
			}
		case schema.Delete:
			if tr.Table != "P" {
				t.Errorf("delete trigger must be on the referenced table, got %q", tr.Table)
			}
		}
	}
}

func TestRenderTrigger(t *testing.T) {
	tr := schema.Trigger{
		Name:   "fki_T_parent_P_id",
		Timing: schema.Before,
		Event:  schema.Insert,
		Table:  "T",
		Body:   "SELECT 1;",
	}
	got := RenderTrigger(tr)
	want := "CREATE TRIGGER [fki_T_parent_P_id] BEFORE INSERT ON [T] BEGIN SELECT 1; END;"
	if got != want {
		t.Errorf("RenderTrigger() = %q, want %q", got, want)
	}
}
