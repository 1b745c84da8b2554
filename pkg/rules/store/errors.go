package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSnapshot is returned by Snapshot before the first successful
	// load and after Invalidate.
	ErrNoSnapshot = errors.New("no rule snapshot loaded")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("rule store already started")
)

// ReloadError reports a failed load. The previous snapshot, if any, is
// still active.
type ReloadError struct {
	Source string
	Cause  error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("failed to reload rules from %s: %v", e.Source, e.Cause)
}

func (e *ReloadError) Unwrap() error {
	return e.Cause
}
