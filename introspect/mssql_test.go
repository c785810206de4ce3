package introspect

import "testing"

func TestUniqueFlagPatternDetectsUniqueDescription(t *testing.T) {
	tests := []struct {
		description string
		want        bool
	}{
		{"nonclustered, unique located on PRIMARY", true},
		{"nonclustered located on PRIMARY", false},
		{"clustered, unique, primary key located on PRIMARY", true},
	}
	for _, tt := range tests {
		if got := uniqueFlagPattern.MatchString(tt.description); got != tt.want {
			t.Errorf("uniqueFlagPattern.MatchString(%q) = %v, want %v", tt.description, got, tt.want)
		}
	}
}

func TestPrimaryKeyPatternSkipsPKRows(t *testing.T) {
	if !primaryKeyPattern.MatchString("clustered, unique, primary key located on PRIMARY") {
		t.Error("expected the primary key description to match")
	}
	if primaryKeyPattern.MatchString("nonclustered located on PRIMARY") {
		t.Error("a non-PK index description must not match")
	}
}

func TestIndexKeyPatternParsesDescendingMarker(t *testing.T) {
	tests := []struct {
		part          string
		wantName      string
		wantAscending bool
	}{
		{"created_at(-)", "created_at", false},
		{"created_at", "created_at", true},
		{" name ", "name", true},
		{" last_name(-) ", "last_name", false},
	}
	for _, tt := range tests {
		m := indexKeyPattern.FindStringSubmatch(tt.part)
		if m == nil {
			t.Fatalf("indexKeyPattern did not match %q", tt.part)
		}
		if m[1] != tt.wantName {
			t.Errorf("parsed name = %q, want %q", m[1], tt.wantName)
		}
		gotAscending := m[2] != "(-)"
		if gotAscending != tt.wantAscending {
			t.Errorf("parsed ascending = %v, want %v", gotAscending, tt.wantAscending)
		}
	}
}

func TestDboPrefixStripIsCaseInsensitive(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT * FROM dbo.widgets", "SELECT * FROM widgets"},
		{"SELECT * FROM DBO.widgets", "SELECT * FROM widgets"},
		{"SELECT * FROM widgets", "SELECT * FROM widgets"},
	}
	for _, tt := range tests {
		if got := dboPrefix.ReplaceAllString(tt.in, ""); got != tt.want {
			t.Errorf("dboPrefix strip of %q = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToIntLoose(t *testing.T) {
	tests := []struct {
		in   any
		want int
		ok   bool
	}{
		{int64(5), 5, true},
		{int32(5), 5, true},
		{"7", 7, true},
		{"abc", 0, false},
		{3.14, 0, false},
	}
	for _, tt := range tests {
		got, ok := toIntLoose(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("toIntLoose(%v) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
