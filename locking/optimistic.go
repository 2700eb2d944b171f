package locking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/unkn0wn-root/regioncache/txn"
)

type optimistic struct{ base }

// NewOptimistic returns a strategy that checks, just before tx commits,
// that the row still carries the version it was read at.
func NewOptimistic(l Lockable, mode txn.LockMode, d Dialect, opts Options) (Strategy, error) {
	b, err := newBase("optimistic", l, mode, txn.Optimistic, d, opts)
	if err != nil {
		return nil, err
	}
	return &optimistic{b}, nil
}

func (s *optimistic) Lock(ctx context.Context, tx *txn.Transaction, id any, version txn.Version, _ any, _ time.Duration) error {
	if err := s.requireVersion(version); err != nil {
		return err
	}
	return tx.BeforeCommit(fmt.Sprintf("verify version %s#%v", s.lockable.name(), id), func(ctx context.Context) error {
		q := squirrel.Select(s.lockable.VersionColumn).
			From(s.lockable.Table).
			Where(squirrel.Eq{s.lockable.IDColumn: id})
		var current sql.NullInt64
		found, err := s.queryRow(ctx, tx, "verify version", q, id, WaitForever, &current)
		if err != nil {
			return err
		}
		if !found || !current.Valid || current.Int64 != version.N {
			s.log.Debug("optimistic version check failed", s.fields(id))
			return s.stale(id)
		}
		return nil
	})
}

type optimisticForceIncrement struct{ base }

// NewOptimisticForceIncrement returns a strategy that bumps the row version
// just before tx commits, whether or not the row was otherwise modified.
func NewOptimisticForceIncrement(l Lockable, mode txn.LockMode, d Dialect, opts Options) (Strategy, error) {
	b, err := newBase("optimistic force increment", l, mode, txn.OptimisticForceIncrement, d, opts)
	if err != nil {
		return nil, err
	}
	return &optimisticForceIncrement{b}, nil
}

func (s *optimisticForceIncrement) Lock(ctx context.Context, tx *txn.Transaction, id any, version txn.Version, object any, _ time.Duration) error {
	if err := s.requireVersion(version); err != nil {
		return err
	}
	return tx.BeforeCommit(fmt.Sprintf("increment version %s#%v", s.lockable.name(), id), func(ctx context.Context) error {
		return s.incrementVersion(ctx, tx, id, version, object, WaitForever)
	})
}

type pessimisticForceIncrement struct{ base }

// NewPessimisticForceIncrement returns a strategy that bumps the row version
// immediately, which also takes the database's row write lock.
func NewPessimisticForceIncrement(l Lockable, mode txn.LockMode, d Dialect, opts Options) (Strategy, error) {
	b, err := newBase("pessimistic force increment", l, mode, txn.PessimisticForceIncrement, d, opts)
	if err != nil {
		return nil, err
	}
	return &pessimisticForceIncrement{b}, nil
}

func (s *pessimisticForceIncrement) Lock(ctx context.Context, tx *txn.Transaction, id any, version txn.Version, object any, timeout time.Duration) error {
	if err := s.requireVersion(version); err != nil {
		return err
	}
	return s.incrementVersion(ctx, tx, id, version, object, timeout)
}
