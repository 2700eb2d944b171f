package locking

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/unkn0wn-root/regioncache/txn"
)

type updateLock struct{ base }

// NewUpdate returns a strategy that locks the row by writing its version
// back unchanged. On an unversioned entity it cannot lock anything: it logs
// a warning here and Lock succeeds without touching the row.
func NewUpdate(l Lockable, mode txn.LockMode, d Dialect, opts Options) (Strategy, error) {
	b, err := newBase("update", l, mode, txn.Upgrade, d, opts)
	if err != nil {
		return nil, err
	}
	if !l.Versioned() {
		b.log.Warn("write locks via update not supported for non-versioned entities", b.fields(nil))
	}
	return &updateLock{b}, nil
}

// NewPessimisticReadUpdate is the update-based PessimisticRead lock for
// dialects without SELECT ... FOR SHARE.
func NewPessimisticReadUpdate(l Lockable, mode txn.LockMode, d Dialect, opts Options) (Strategy, error) {
	return newStrictUpdate("pessimistic read update", l, mode, txn.PessimisticRead, d, opts)
}

// NewPessimisticWriteUpdate is the update-based PessimisticWrite lock for
// dialects without SELECT ... FOR UPDATE.
func NewPessimisticWriteUpdate(l Lockable, mode txn.LockMode, d Dialect, opts Options) (Strategy, error) {
	return newStrictUpdate("pessimistic write update", l, mode, txn.PessimisticWrite, d, opts)
}

func newStrictUpdate(kind string, l Lockable, mode, min txn.LockMode, d Dialect, opts Options) (Strategy, error) {
	b, err := newBase(kind, l, mode, min, d, opts)
	if err != nil {
		return nil, err
	}
	if !l.Versioned() {
		return nil, fmt.Errorf("%w: [%v] on %s", ErrNotVersioned, mode, l.name())
	}
	return &updateLock{b}, nil
}

func (s *updateLock) Lock(ctx context.Context, tx *txn.Transaction, id any, version txn.Version, _ any, timeout time.Duration) error {
	if !s.lockable.Versioned() {
		s.log.Warn("update lock skipped: entity is not versioned", s.fields(id))
		return nil
	}
	if err := s.requireVersion(version); err != nil {
		return err
	}
	col := s.lockable.VersionColumn
	q := squirrel.Update(s.lockable.Table).Set(col, squirrel.Expr(col))
	for _, w := range s.whereRow(id, version) {
		q = q.Where(w)
	}
	n, err := s.exec(ctx, tx, "lock row", q, id, timeout)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.stale(id)
	}
	return nil
}
