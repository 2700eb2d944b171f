package locking

import (
	"context"
	"errors"

	"github.com/VividCortex/mysqlerr"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// MySQL 8 "NOWAIT is set" error; not in mysqlerr.
const erLockNowait = 3572

// Postgres SQLSTATEs.
const (
	pqLockNotAvailable     = "55P03"
	pqDeadlockDetected     = "40P01"
	pqSerializationFailure = "40001"
)

// convertSQLError maps a driver error from a lock statement to the
// package's error kinds. It is the only place driver errors are inspected.
func convertSQLError(err error, op, query, entity string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &LockTimeoutError{Entity: entity, ID: id, Err: err}
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlerr.ER_LOCK_WAIT_TIMEOUT, erLockNowait:
			return &LockTimeoutError{Entity: entity, ID: id, Err: err}
		case mysqlerr.ER_LOCK_DEADLOCK:
			return &PessimisticLockError{Entity: entity, ID: id, Err: err}
		}
	}

	var pe *pq.Error
	if errors.As(err, &pe) {
		switch pe.Code {
		case pqLockNotAvailable:
			return &LockTimeoutError{Entity: entity, ID: id, Err: err}
		case pqDeadlockDetected, pqSerializationFailure:
			return &PessimisticLockError{Entity: entity, ID: id, Err: err}
		}
	}

	return &SQLError{Op: op, SQL: query, Err: err}
}
