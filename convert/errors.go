package convert

import "errors"

// The error kinds a conversion run can fail with, as a small closed set of
// sentinel/wrapped errors checked with errors.Is/errors.As, matching the
// reference stack's preference for returning error values rather than
// panicking.
var (
	// ErrCancelled means the user requested cancellation; the in-flight
	// transaction was rolled back to the last commit.
	ErrCancelled = errors.New("convert: cancelled")

	// ErrUnsupportedType means introspection encountered a source type
	// token outside typemap's accepted set. Fatal; no destination file is
	// created.
	ErrUnsupportedType = errors.New("convert: unsupported source type")

	// ErrIllegalAffinity means the row copier hit an affinity with no
	// coercion rule. Fatal; indicates a mapper bug.
	ErrIllegalAffinity = errors.New("convert: illegal affinity")

	// ErrIntrospection means a catalog query failed (other than the
	// per-table index query, whose failure is only a warning).
	ErrIntrospection = errors.New("convert: introspection failed")

	// ErrDDL means a CREATE TABLE/INDEX/TRIGGER statement failed. CREATE
	// VIEW failures are recoverable via the view-failure handler; they
	// surface as ErrDDL only when no handler is installed.
	ErrDDL = errors.New("convert: ddl failed")

	// ErrRowCopy means a row-copy batch failed and was rolled back.
	ErrRowCopy = errors.New("convert: row copy failed")

	// ErrConfiguration means the source connection string or destination
	// path was missing or invalid, a destination password was supplied, or
	// a conversion is already in progress; Convert returns these before the
	// worker starts, without invoking the progress handler. The worker also
	// uses it when an existing destination file cannot be removed or the
	// new one cannot be opened, and those failures are reported through the
	// progress handler.
	ErrConfiguration = errors.New("convert: invalid configuration")
)
