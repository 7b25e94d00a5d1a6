package stats

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("invalid request")
	ErrNotFound         = errors.New("no data")
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// ValidationError reports a missing or malformed filter parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// storeError wraps a failed scan so callers can match ErrStoreUnavailable
// and still reach the underlying cause.
type storeError struct {
	err error
}

func (e *storeError) Error() string {
	return fmt.Sprintf("%v: %v", ErrStoreUnavailable, e.err)
}

func (e *storeError) Unwrap() []error { return []error{ErrStoreUnavailable, e.err} }

// StoreFailure marks err as a record store failure.
func StoreFailure(err error) error {
	if err == nil {
		return nil
	}
	return &storeError{err: err}
}
