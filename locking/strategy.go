package locking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/unkn0wn-root/regioncache"
	"github.com/unkn0wn-root/regioncache/txn"
)

// Strategy acquires a lock on one row.
type Strategy interface {
	// Lock locks the row id, read at version, within tx. object is the
	// in-memory entity; strategies that change the version update it if it
	// implements Versioned. timeout is NoWait, WaitForever or a positive wait.
	Lock(ctx context.Context, tx *txn.Transaction, id any, version txn.Version, object any, timeout time.Duration) error
	// Mode is the lock mode the strategy was built for.
	Mode() txn.LockMode
}

// Versioned is implemented by entities whose version a strategy may bump.
type Versioned interface {
	SetVersion(txn.Version)
}

// Options configure a strategy.
type Options struct {
	Logger regioncache.Logger // if nil, NopLogger is used
}

type base struct {
	kind     string
	lockable Lockable
	mode     txn.LockMode
	dialect  Dialect
	log      regioncache.Logger
}

func newBase(kind string, l Lockable, mode, min txn.LockMode, d Dialect, opts Options) (base, error) {
	if mode.LessThan(min) {
		return base{}, &UnsupportedLockModeError{Strategy: kind, Mode: mode, Min: min}
	}
	if err := l.validate(); err != nil {
		return base{}, err
	}
	if d == nil {
		return base{}, fmt.Errorf("locking: %s strategy: dialect is required", kind)
	}
	b := base{kind: kind, lockable: l, mode: mode, dialect: d, log: opts.Logger}
	if b.log == nil {
		b.log = regioncache.NopLogger{}
	}
	return b, nil
}

func (b *base) Mode() txn.LockMode { return b.mode }

func (b *base) stale(id any) error {
	return &StaleObjectStateError{Entity: b.lockable.name(), ID: id}
}

func (b *base) fields(id any) regioncache.Fields {
	return regioncache.Fields{"entity": b.lockable.name(), "id": id, "mode": b.mode.String(), "strategy": b.kind}
}

// whereRow restricts q to the row id, and to version when both the entity
// and the caller have one.
func (b *base) whereRow(id any, version txn.Version) []squirrel.Sqlizer {
	w := []squirrel.Sqlizer{squirrel.Eq{b.lockable.IDColumn: id}}
	if b.lockable.Versioned() && version.Valid {
		w = append(w, squirrel.Eq{b.lockable.VersionColumn: version.N})
	}
	return w
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}

// exec runs an update and returns the number of rows it touched.
func (b *base) exec(ctx context.Context, tx *txn.Transaction, op string, q squirrel.UpdateBuilder, id any, timeout time.Duration) (int64, error) {
	ex, err := tx.Exec()
	if err != nil {
		return 0, err
	}
	query, args, err := q.PlaceholderFormat(b.dialect.Placeholder()).ToSql()
	if err != nil {
		return 0, fmt.Errorf("locking: failed to generate statement: %w", err)
	}
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, convertSQLError(err, op, query, b.lockable.name(), id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, convertSQLError(err, op, query, b.lockable.name(), id)
	}
	return n, nil
}

// queryRow runs a single-row select; found is false when no row matched.
func (b *base) queryRow(ctx context.Context, tx *txn.Transaction, op string, q squirrel.SelectBuilder, id any, timeout time.Duration, dest ...any) (found bool, err error) {
	ex, err := tx.Exec()
	if err != nil {
		return false, err
	}
	query, args, err := q.PlaceholderFormat(b.dialect.Placeholder()).ToSql()
	if err != nil {
		return false, fmt.Errorf("locking: failed to generate statement: %w", err)
	}
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	switch err := ex.QueryRowContext(ctx, query, args...).Scan(dest...); {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, convertSQLError(err, op, query, b.lockable.name(), id)
	}
	return true, nil
}

// incrementVersion bumps the row's version from version to version.Next().
// Zero rows touched means another transaction got there first.
func (b *base) incrementVersion(ctx context.Context, tx *txn.Transaction, id any, version txn.Version, object any, timeout time.Duration) error {
	next := version.Next()
	q := squirrel.Update(b.lockable.Table).
		Set(b.lockable.VersionColumn, next.N).
		Where(squirrel.Eq{b.lockable.IDColumn: id}).
		Where(squirrel.Eq{b.lockable.VersionColumn: version.N})
	n, err := b.exec(ctx, tx, "increment version", q, id, timeout)
	if err != nil {
		return err
	}
	if n == 0 {
		return b.stale(id)
	}
	if v, ok := object.(Versioned); ok {
		v.SetVersion(next)
	}
	return nil
}

func (b *base) requireVersion(version txn.Version) error {
	if !b.lockable.Versioned() || !version.Valid {
		return fmt.Errorf("%w: [%v] on %s", ErrNotVersioned, b.mode, b.lockable.name())
	}
	return nil
}
