package convert

import "github.com/w8tcha/mssql2sqlite/schema"

// ProgressHandler is invoked many times during a run; the final invocation
// has done=true exactly once.
type ProgressHandler func(done, success bool, percent int, message string)

// TableSelectionHandler receives the full list of introspected tables and
// returns either a filtered replacement list or nil to keep the original.
// Invoked once, after introspection, before DDL emission.
type TableSelectionHandler func(tables []schema.Table) []schema.Table

// ViewFailureHandler receives a view whose DDL failed to execute and
// returns either a replacement DDL string to retry, or ("", false) to
// discard the view. If not installed, a view failure is fatal.
type ViewFailureHandler func(v schema.View, execErr error) (replacement string, retry bool)
