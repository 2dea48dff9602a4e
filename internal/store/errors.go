package store

import "errors"

var (
	// ErrNotFound is returned by Get methods when no row matches.
	ErrNotFound = errors.New("store: not found")

	// ErrVersionConflict is returned by version-checked writes when the row
	// changed since it was read. Atomic retries the whole function on it.
	ErrVersionConflict = errors.New("store: version conflict")

	// ErrConflict is returned by Atomic when retries are exhausted.
	ErrConflict = errors.New("store: transaction conflict")

	// ErrDuplicate is returned by Create methods on a uniqueness violation.
	ErrDuplicate = errors.New("store: duplicate")
)
