package locking

import (
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/unkn0wn-root/regioncache/txn"
)

// Lock wait timeouts. Positive values bound the statement with a context
// deadline.
const (
	// NoWait fails at once if the row is locked, where the dialect can say so.
	NoWait time.Duration = 0
	// WaitForever waits as long as the database lets it.
	WaitForever time.Duration = -1
)

// Dialect is the part of an SQL dialect lock statements depend on.
type Dialect interface {
	Name() string
	Placeholder() squirrel.PlaceholderFormat
	// LockHint returns the clause that locks the selected row at mode, or ""
	// if mode takes no database lock.
	LockHint(mode txn.LockMode, timeout time.Duration) string
	// SupportsLockingSelect reports whether SELECT ... FOR UPDATE works.
	// Without it, pessimistic modes lock by updating the row.
	SupportsLockingSelect() bool
}

var (
	// MySQL is MySQL 8.0 and later.
	MySQL Dialect = forUpdateDialect{name: "mysql", ph: squirrel.Question}
	// Postgres is PostgreSQL 9.5 and later.
	Postgres Dialect = forUpdateDialect{name: "postgres", ph: squirrel.Dollar}
	// SQLite has no row locks; writers lock by touching the row.
	SQLite Dialect = plainDialect{name: "sqlite", ph: squirrel.Question}
)

type forUpdateDialect struct {
	name string
	ph   squirrel.PlaceholderFormat
}

func (d forUpdateDialect) Name() string                            { return d.name }
func (d forUpdateDialect) Placeholder() squirrel.PlaceholderFormat { return d.ph }
func (d forUpdateDialect) SupportsLockingSelect() bool             { return true }

func (d forUpdateDialect) LockHint(mode txn.LockMode, timeout time.Duration) string {
	var hint string
	switch mode {
	case txn.PessimisticRead:
		hint = "FOR SHARE"
	case txn.Write, txn.UpgradeNowait, txn.PessimisticWrite, txn.PessimisticForceIncrement:
		hint = "FOR UPDATE"
	default:
		return ""
	}
	if mode == txn.UpgradeNowait || timeout == NoWait {
		hint += " NOWAIT"
	}
	return hint
}

type plainDialect struct {
	name string
	ph   squirrel.PlaceholderFormat
}

func (d plainDialect) Name() string                                { return d.name }
func (d plainDialect) Placeholder() squirrel.PlaceholderFormat     { return d.ph }
func (d plainDialect) LockHint(txn.LockMode, time.Duration) string { return "" }
func (d plainDialect) SupportsLockingSelect() bool                 { return false }
