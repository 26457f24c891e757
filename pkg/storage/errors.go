package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a uniqueness constraint is violated.
	ErrConflict = errors.New("record already exists")
)
