package regioncache

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/regioncache/txn"
)

// softLocks is the read-write state of a region.
type softLocks struct {
	source uuid.UUID
	nextID atomic.Uint64

	// region lock: held while regionLocks > 0, until regionTimeout
	regionLocks   atomic.Int32
	regionTimeout atomic.Int64
	// loads by transactions started at or before fence may not populate
	fence atomic.Int64
}

func (s *softLocks) regionLocked(now int64) bool {
	return s.regionLocks.Load() > 0 && now < s.regionTimeout.Load()
}

func (s *softLocks) raiseFence(ts int64) { raise(&s.fence, ts) }

func raise(v *atomic.Int64, ts int64) {
	for {
		cur := v.Load()
		if ts <= cur || v.CompareAndSwap(cur, ts) {
			return
		}
	}
}

func (a *AccessStrategy[V]) rwGet(ctx context.Context, key string, txTimestamp int64) (V, bool, error) {
	var zero V
	if a.rw.regionLocked(a.region.NextTimestamp()) {
		return zero, false, nil
	}
	e, ok, err := a.region.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	it, isItem := e.(*Item)
	if !isItem || !it.IsReadable(txTimestamp) {
		return zero, false, nil
	}
	return a.decode(ctx, key, it)
}

func (a *AccessStrategy[V]) rwPutFromLoad(ctx context.Context, key string, value V, txTimestamp int64, version txn.Version, minimalPut bool) (bool, error) {
	if a.rw.regionLocked(a.region.NextTimestamp()) {
		a.rejected(key, "region_locked")
		return false, nil
	}
	if txTimestamp <= a.rw.fence.Load() {
		a.rejected(key, "fenced")
		return false, nil
	}

	unlock := a.region.stripes.Lock(key)
	defer unlock()

	e, ok, err := a.region.get(ctx, key, true)
	if err != nil {
		return false, err
	}
	if ok {
		switch cur := e.(type) {
		case *Item:
			if minimalPut {
				a.rejected(key, "minimal_put")
				return false, nil
			}
			if !cur.IsWriteable(txTimestamp, version) {
				a.rejected(key, "not_writeable")
				return false, nil
			}
		case *SoftLock:
			if !cur.IsWriteable(txTimestamp, version) {
				reason := "not_writeable"
				if cur.Locked() {
					reason = "locked"
				}
				a.rejected(key, reason)
				return false, nil
			}
		}
	}
	return a.putItem(ctx, key, value, version)
}

func (a *AccessStrategy[V]) rwLockItem(ctx context.Context, key string, version txn.Version) (*SoftLock, error) {
	unlock := a.region.stripes.Lock(key)
	defer unlock()

	e, ok, err := a.region.get(ctx, key, true)
	if err != nil {
		return nil, err
	}
	now := a.region.NextTimestamp()
	timeout := now + a.region.timeout

	var l *SoftLock
	if cur, isLock := e.(*SoftLock); ok && isLock && cur.Locked() {
		l = cur.clone()
		l.relock(timeout)
	} else {
		// a fence left by an expired lock is replaced, not re-entered
		l = &SoftLock{
			Key:          key,
			Region:       a.region.name,
			Source:       a.rw.source,
			ID:           a.rw.nextID.Add(1),
			Multiplicity: 1,
			AcquiredAt:   now,
			Timeout:      timeout,
			Version:      version,
		}
	}
	if err := a.region.Put(ctx, key, l); err != nil {
		return nil, cacheErr("lock_item", a.region.name, key, err)
	}
	return l.clone(), nil
}

func (a *AccessStrategy[V]) rwUnlockItem(ctx context.Context, key string, lock *SoftLock) error {
	unlock := a.region.stripes.Lock(key)
	defer unlock()

	e, ok, err := a.region.get(ctx, key, true)
	if err != nil {
		return cacheErr("unlock_item", a.region.name, key, err)
	}
	if cur, isLock := e.(*SoftLock); ok && isLock && cur.Locked() && cur.Matches(lock) {
		cur.unlock()
		return a.release(ctx, "unlock_item", key, cur)
	}
	return a.handleLockExpiry(ctx, key, lock)
}

func (a *AccessStrategy[V]) rwAfterInsert(ctx context.Context, key string, value V, version txn.Version) (bool, error) {
	unlock := a.region.stripes.Lock(key)
	defer unlock()

	present, err := a.region.contains(ctx, key, true)
	if err != nil || present {
		return false, err
	}
	return a.putItem(ctx, key, value, version)
}

func (a *AccessStrategy[V]) rwAfterUpdate(ctx context.Context, key string, value V, version txn.Version, lock *SoftLock) (bool, error) {
	unlock := a.region.stripes.Lock(key)
	defer unlock()

	e, ok, err := a.region.get(ctx, key, true)
	if err != nil {
		return false, err
	}
	cur, isLock := e.(*SoftLock)
	if !ok || !isLock || !cur.Locked() || !cur.Matches(lock) {
		return false, a.handleLockExpiry(ctx, key, lock)
	}
	if cur.Concurrent {
		// another writer overlapped; its value may be the newer one
		cur.unlock()
		return false, a.release(ctx, "after_update", key, cur)
	}
	return a.putItem(ctx, key, value, version)
}

func (a *AccessStrategy[V]) rwRemove(ctx context.Context, key string) error {
	unlock := a.region.stripes.Lock(key)
	defer unlock()

	e, ok, err := a.region.get(ctx, key, true)
	if err != nil {
		return a.fallback(ctx, "remove", err)
	}
	if _, isLock := e.(*SoftLock); ok && isLock {
		return nil
	}
	return a.Evict(ctx, key)
}

// release stores l after one holder let go of it, or evicts the key once
// no holder is left. Callers hold the key's stripe.
func (a *AccessStrategy[V]) release(ctx context.Context, op, key string, l *SoftLock) error {
	if l.Locked() {
		return cacheErr(op, a.region.name, key, a.region.Put(ctx, key, l))
	}
	return cacheErr(op, a.region.name, key, a.region.Evict(ctx, key))
}

// handleLockExpiry runs when the lock a writer holds is gone or was
// replaced, typically because it outlived the region timeout. The key is
// fenced with an unlocked lock that refuses loads for one more timeout.
// Callers hold the key's stripe.
func (a *AccessStrategy[V]) handleLockExpiry(ctx context.Context, key string, lock *SoftLock) error {
	ts := a.region.NextTimestamp() + a.region.timeout
	l := &SoftLock{
		Key:             key,
		Region:          a.region.name,
		Source:          a.rw.source,
		ID:              a.rw.nextID.Add(1),
		AcquiredAt:      ts,
		Timeout:         ts,
		UnlockTimestamp: ts,
	}
	a.region.hooks.LockExpired(a.region.name, key)
	fields := Fields{"region": a.region.name, "key": key}
	if lock != nil {
		fields["lock_id"] = lock.ID
	}
	a.region.log.Warn("soft lock expired or replaced; fencing key", fields)
	return cacheErr("lock_expiry", a.region.name, key, a.region.Put(ctx, key, l))
}

func (a *AccessStrategy[V]) rwLockRegion() *SoftLock {
	now := a.region.NextTimestamp()
	timeout := now + a.region.timeout
	a.rw.regionLocks.Add(1)
	raise(&a.rw.regionTimeout, timeout)
	return &SoftLock{
		Region:       a.region.name,
		Source:       a.rw.source,
		ID:           a.rw.nextID.Add(1),
		Multiplicity: 1,
		AcquiredAt:   now,
		Timeout:      timeout,
	}
}

func (a *AccessStrategy[V]) rwUnlockRegion(lock *SoftLock) {
	if lock == nil || lock.Source != a.rw.source || lock.Key != "" {
		a.region.log.Warn("unlock region with a foreign lock", Fields{"region": a.region.name})
		return
	}
	for {
		n := a.rw.regionLocks.Load()
		if n <= 0 || a.rw.regionLocks.CompareAndSwap(n, n-1) {
			break
		}
	}
	a.rw.raiseFence(a.region.NextTimestamp())
}
