package storage

import "errors"

// Storage errors for the trade journal.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// for an observed signature that was already journaled.
	ErrDuplicateKey = errors.New("duplicate key: journal entry already exists")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
