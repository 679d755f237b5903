package repository

import "errors"

var (
	// ErrNotFound is returned when an id or token does not resolve to a row
	ErrNotFound = errors.New("record not found")
	// ErrRejected is returned when the backend refuses a write, e.g. a
	// constraint violation
	ErrRejected = errors.New("write rejected")
)
