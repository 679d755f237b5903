package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when the caller has no valid session
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrInvalidInput is returned for values the backend would refuse anyway
	ErrInvalidInput = errors.New("invalid input")
)

// PartialWriteError reports a multi-row write where some rows failed while
// others may already be committed. Nothing is rolled back.
type PartialWriteError struct {
	Op     string
	Total  int
	Failed int
	Err    error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%s: %d of %d writes failed: %v", e.Op, e.Failed, e.Total, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
