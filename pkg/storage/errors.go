package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when an execution record does not exist.
	ErrNotFound = errors.New("execution not found")

	// ErrConflict is returned when a record with the given ID already exists.
	ErrConflict = errors.New("execution already exists")
)
