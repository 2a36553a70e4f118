package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrStaleSequence means the stored ledger sequence moved past the one a
	// transition was computed against.
	ErrStaleSequence = errors.New("stale ledger sequence")
	// ErrConstraint means a row broke a schema constraint. The ledger checks
	// the same rules first, so it points at a bug or a hand-edited database.
	ErrConstraint = errors.New("constraint violation")
)
