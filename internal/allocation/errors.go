package allocation

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict means a row changed between the snapshot and the commit.
	ErrConflict = errors.New("allocation conflict")
	// ErrSweepBusy means another sweep holds the sweep lock.
	ErrSweepBusy = errors.New("allocation sweep already running")
)

// PersistenceError is returned when loading or committing a sweep fails.
// Nothing from the failed sweep is visible; the caller may retry the whole
// sweep from a fresh snapshot.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("allocation %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Conflict reports whether the failure came from a concurrent writer rather
// than from the store being unavailable.
func (e *PersistenceError) Conflict() bool {
	return errors.Is(e.Err, ErrConflict) || errors.Is(e.Err, ErrSweepBusy)
}

// NewPersistenceError wraps err for op. A nil err yields nil and an existing
// PersistenceError is returned unchanged.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsPersistenceError reports whether err is or wraps a PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
