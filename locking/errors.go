package locking

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/regioncache/txn"
)

// ErrNotVersioned is returned by strategies that need a version column when
// the entity has none, or when no version was supplied.
var ErrNotVersioned = errors.New("locking: entity is not versioned")

// StaleObjectStateError reports that the row changed or disappeared since
// the caller read it.
type StaleObjectStateError struct {
	Entity string
	ID     any
}

func (e *StaleObjectStateError) Error() string {
	return fmt.Sprintf("locking: row was updated or deleted by another transaction: %s#%v", e.Entity, e.ID)
}

// UnsupportedLockModeError is returned when a strategy is built for a mode
// weaker than it can provide.
type UnsupportedLockModeError struct {
	Strategy string
	Mode     txn.LockMode
	Min      txn.LockMode
}

func (e *UnsupportedLockModeError) Error() string {
	return fmt.Sprintf("locking: %s strategy requires lock mode %v or stronger, got %v", e.Strategy, e.Min, e.Mode)
}

// LockTimeoutError reports a lock that could not be acquired in time.
type LockTimeoutError struct {
	Entity string
	ID     any
	Err    error
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("locking: timed out locking %s#%v: %v", e.Entity, e.ID, e.Err)
}

func (e *LockTimeoutError) Unwrap() error { return e.Err }

// PessimisticLockError reports a lock the database refused, e.g. on deadlock.
type PessimisticLockError struct {
	Entity string
	ID     any
	Err    error
}

func (e *PessimisticLockError) Error() string {
	return fmt.Sprintf("locking: could not lock %s#%v: %v", e.Entity, e.ID, e.Err)
}

func (e *PessimisticLockError) Unwrap() error { return e.Err }

// SQLError wraps any other failure of a lock statement.
type SQLError struct {
	Op  string
	SQL string
	Err error
}

func (e *SQLError) Error() string {
	return fmt.Sprintf("locking: %s [%s]: %v", e.Op, e.SQL, e.Err)
}

func (e *SQLError) Unwrap() error { return e.Err }
