package locking

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/unkn0wn-root/regioncache/txn"
)

type selectLock struct{ base }

// NewSelect returns a strategy that reads the row back with the dialect's
// lock hint for mode. A missing row, or one at a different version, is stale.
func NewSelect(l Lockable, mode txn.LockMode, d Dialect, opts Options) (Strategy, error) {
	return newSelect("select", l, mode, txn.Read, d, opts)
}

// NewPessimisticReadSelect takes a shared row lock with SELECT ... FOR SHARE.
func NewPessimisticReadSelect(l Lockable, mode txn.LockMode, d Dialect, opts Options) (Strategy, error) {
	return newSelect("pessimistic read select", l, mode, txn.PessimisticRead, d, opts)
}

// NewPessimisticWriteSelect takes an exclusive row lock with SELECT ... FOR UPDATE.
func NewPessimisticWriteSelect(l Lockable, mode txn.LockMode, d Dialect, opts Options) (Strategy, error) {
	return newSelect("pessimistic write select", l, mode, txn.PessimisticWrite, d, opts)
}

func newSelect(kind string, l Lockable, mode, min txn.LockMode, d Dialect, opts Options) (Strategy, error) {
	b, err := newBase(kind, l, mode, min, d, opts)
	if err != nil {
		return nil, err
	}
	return &selectLock{b}, nil
}

func (s *selectLock) Lock(ctx context.Context, tx *txn.Transaction, id any, version txn.Version, _ any, timeout time.Duration) error {
	q := squirrel.Select(s.lockable.IDColumn).From(s.lockable.Table)
	for _, w := range s.whereRow(id, version) {
		q = q.Where(w)
	}
	if hint := s.dialect.LockHint(s.mode, timeout); hint != "" {
		q = q.Suffix(hint)
	}
	var got any
	found, err := s.queryRow(ctx, tx, "lock row", q, id, timeout, &got)
	if err != nil {
		return err
	}
	if !found {
		return s.stale(id)
	}
	return nil
}
