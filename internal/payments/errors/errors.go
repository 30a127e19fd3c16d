package errors

import "errors"

var (
	ErrNotFound = errors.New("payment not found")

	ErrVersionConflict = errors.New("payment version conflict")
)
