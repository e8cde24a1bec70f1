package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a conditional write loses a race: a
	// driver reservation whose guard no longer holds, or a delivery update
	// against a stale version. Callers retry or move to the next candidate.
	ErrConflict = errors.New("conflicting concurrent write")

	// ErrDuplicate is returned when a uniqueness constraint is violated
	// (hub code, vehicle plate, tracking number).
	ErrDuplicate = errors.New("duplicate entity")
)
