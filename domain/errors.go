package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoExpression means no date or time expression was found in the text.
	ErrNoExpression = errors.New("no date/time expression found")
	// ErrPastOrInvalid means the expression resolved to an instant at or before now.
	ErrPastOrInvalid = errors.New("resolved time is in the past or invalid")
	// ErrEmptyTask means nothing was left after removing the date/time expression.
	ErrEmptyTask = errors.New("reminder task is empty")
	// ErrNotFound means the reminder does not exist or belongs to another chat.
	ErrNotFound = errors.New("reminder not found")
	// ErrTimezoneLookup means the location could not be mapped to a timezone.
	ErrTimezoneLookup = errors.New("timezone lookup failed")
	// ErrInvalidTimezone means the timezone id is not a known IANA zone.
	ErrInvalidTimezone = errors.New("invalid timezone")
)

// StorageError wraps a failure of the persistent store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError returns nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
