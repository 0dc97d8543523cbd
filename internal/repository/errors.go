package repository

import "errors"

var (
	// ErrNotFound is returned when the target row does not exist (or vanished
	// under a concurrent delete).
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when an optimistic version check fails or a
	// unique key is already taken. Callers may reload and retry.
	ErrConflict = errors.New("concurrent modification")
)
