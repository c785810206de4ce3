package schema

import "testing"

func TestValidateCatchesUnknownPrimaryKeyColumn(t *testing.T) {
	db := &Database{
		Tables: []Table{
			{
				Name:       "widgets",
				Columns:    []Column{{Name: "id"}},
				PrimaryKey: []string{"widget_id"},
			},
		},
	}
	if err := db.Validate(); err == nil {
		t.Fatal("expected an error for a primary key column absent from the table")
	}
}

func TestValidateCatchesUnknownIndexColumn(t *testing.T) {
	db := &Database{
		Tables: []Table{
			{
				Name:    "widgets",
				Columns: []Column{{Name: "id"}},
				Indexes: []Index{
					{Name: "ix_name", Columns: []IndexColumn{{ColumnName: "name"}}},
				},
			},
		},
	}
	if err := db.Validate(); err == nil {
		t.Fatal("expected an error for an index column absent from the table")
	}
}

func TestValidateDoesNotCheckForeignKeyTargets(t *testing.T) {
	db := &Database{
		Tables: []Table{
			{
				Name:    "orders",
				Columns: []Column{{Name: "customer_id"}},
				ForeignKeys: []ForeignKey{
					{ColumnName: "customer_id", ForeignTableName: "customers", ForeignColumn: "id"},
				},
			},
		},
	}
	if err := db.Validate(); err != nil {
		t.Fatalf("Validate should not check FK targets (deferred to DDL emission): %v", err)
	}
	if err := db.ValidateForeignKeyTargets(); err == nil {
		t.Fatal("expected ValidateForeignKeyTargets to fail for a missing referenced table")
	}
}

func TestValidateForeignKeyTargetsSucceedsWhenTargetExists(t *testing.T) {
	db := &Database{
		Tables: []Table{
			{
				Name:    "orders",
				Columns: []Column{{Name: "customer_id"}},
				ForeignKeys: []ForeignKey{
					{ColumnName: "customer_id", ForeignTableName: "customers", ForeignColumn: "id"},
				},
			},
			{
				Name:    "customers",
				Columns: []Column{{Name: "id"}},
			},
		},
	}
	if err := db.ValidateForeignKeyTargets(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCaseSensitivityZeroValueIsUnknown(t *testing.T) {
	var c Column
	if c.CaseSensitive != CaseSensitivityUnknown {
		t.Fatalf("zero value of CaseSensitivity must be Unknown, got %v", c.CaseSensitive)
	}
}

func TestTriggerTimingString(t *testing.T) {
	if Before.String() != "BEFORE" {
		t.Errorf("Before.String() = %q, want BEFORE", Before.String())
	}
	if After.String() != "AFTER" {
		t.Errorf("After.String() = %q, want AFTER", After.String())
	}
}

func TestTriggerEventString(t *testing.T) {
	cases := map[TriggerEvent]string{Insert: "INSERT", Update: "UPDATE", Delete: "DELETE"}
	for event, want := range cases {
		if got := event.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", event, got, want)
		}
	}
}

func TestDatabaseTableLookup(t *testing.T) {
	db := &Database{Tables: []Table{{Name: "widgets"}}}
	if _, ok := db.Table("widgets"); !ok {
		t.Error("expected to find table widgets")
	}
	if _, ok := db.Table("missing"); ok {
		t.Error("expected not to find table missing")
	}
}
