package regioncache

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/regioncache/txn"
)

// Loader fetches the value for a key from the database. ok is false when
// there is no such row.
type Loader[V any] func(ctx context.Context) (value V, version txn.Version, ok bool, err error)

// Writer performs a database write inside the transaction.
type Writer func(ctx context.Context) error

// Load reads key through the cache. Loads at a lock mode stronger than
// Read go straight to the database. Cache failures degrade to a database
// load; only loader errors are returned.
func Load[V any](ctx context.Context, a *AccessStrategy[V], tx *txn.Transaction, key string, mode txn.LockMode, load Loader[V]) (V, bool, error) {
	var zero V
	ts := tx.Timestamp()
	if !mode.BypassesCache() {
		v, ok, err := a.Get(ctx, key, ts)
		switch {
		case err != nil:
			a.region.log.Warn("cache read failed; loading from database", Fields{"region": a.region.name, "key": key, "err": err})
		case ok:
			return v, true, nil
		}
	}

	v, version, ok, err := load(ctx)
	if err != nil {
		return zero, false, fmt.Errorf("load %q: %w", key, err)
	}
	if !ok {
		return zero, false, nil
	}
	if _, err := a.PutFromLoad(ctx, key, v, ts, version, a.MinimalPuts()); err != nil {
		a.region.log.Warn("cache put after load failed", Fields{"region": a.region.name, "key": key, "err": err})
	}
	return v, true, nil
}

// Update writes value through to the database and the cache. The item is
// soft locked until tx completes; on commit the cache receives the new value
// at version current, on rollback the lock is released.
func Update[V any](ctx context.Context, a *AccessStrategy[V], tx *txn.Transaction, key string, value V, current, previous txn.Version, write Writer) error {
	if a.kind == ReadOnly {
		return ErrReadOnlyUpdate
	}
	lock, err := a.LockItem(ctx, key, previous)
	if err != nil {
		return err
	}
	if err := tx.AfterCompletion(func(ctx context.Context, committed bool) {
		var err error
		if committed {
			_, err = a.AfterUpdate(ctx, key, value, current, previous, lock)
		} else {
			err = a.UnlockItem(ctx, key, lock)
		}
		a.logCompletion("update", key, committed, err)
	}); err != nil {
		_ = a.UnlockItem(ctx, key, lock)
		return err
	}
	if write != nil {
		if err := write(ctx); err != nil {
			return err
		}
	}
	_, err = a.Update(ctx, key, value, current, previous)
	return err
}

// Delete removes key from the database and the cache. The item stays soft
// locked until tx completes.
func Delete[V any](ctx context.Context, a *AccessStrategy[V], tx *txn.Transaction, key string, version txn.Version, write Writer) error {
	lock, err := a.LockItem(ctx, key, version)
	if err != nil {
		return err
	}
	if err := tx.AfterCompletion(func(ctx context.Context, committed bool) {
		a.logCompletion("delete", key, committed, a.UnlockItem(ctx, key, lock))
	}); err != nil {
		_ = a.UnlockItem(ctx, key, lock)
		return err
	}
	if write != nil {
		if err := write(ctx); err != nil {
			return err
		}
	}
	return a.Remove(ctx, key)
}

// Insert writes a new row and caches it once tx commits.
func Insert[V any](ctx context.Context, a *AccessStrategy[V], tx *txn.Transaction, key string, value V, version txn.Version, write Writer) error {
	if write != nil {
		if err := write(ctx); err != nil {
			return err
		}
	}
	if _, err := a.Insert(ctx, key, value, version); err != nil {
		return err
	}
	return tx.AfterCompletion(func(ctx context.Context, committed bool) {
		if !committed {
			if a.kind == Transactional {
				a.logCompletion("insert", key, false, a.Evict(ctx, key))
			}
			return
		}
		_, err := a.AfterInsert(ctx, key, value, version)
		a.logCompletion("insert", key, true, err)
	})
}

func (a *AccessStrategy[V]) logCompletion(op, key string, committed bool, err error) {
	if err == nil {
		return
	}
	a.region.log.Error("cache completion failed", Fields{
		"region":    a.region.name,
		"op":        op,
		"key":       key,
		"committed": committed,
		"err":       err,
	})
}
