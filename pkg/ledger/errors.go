package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadySettled means the source was claimed by someone else.
	ErrAlreadySettled = errors.New("source record already settled")

	// ErrAlreadyLinked means the target was claimed by someone else.
	ErrAlreadyLinked = errors.New("target record already linked")

	// ErrNotFound means the record does not exist.
	ErrNotFound = errors.New("record not found")
)

// IsConflict reports whether err is a lost claim rather than a failure.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadySettled) || errors.Is(err, ErrAlreadyLinked)
}

// StorageError wraps a failure of the backing store.
type StorageError struct {
	Backend string
	Op      string
	Cause   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}
