package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a keyed lookup matches nothing.
var ErrNotFound = errors.New("not found")

// ErrInvalidQuery is returned for out-of-range coordinates or radius.
var ErrInvalidQuery = errors.New("invalid query")

// StorageError is a datastore failure scoped to one operation or batch.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// fatal reports errors that invalidate the connection rather than a single row.
func fatal(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
