package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	// ErrVersionConflict means the stored booking changed since it was read, or an insert
	// collided with an existing id.
	ErrVersionConflict = errors.New("booking version conflict")
)
