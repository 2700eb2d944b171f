package regioncache

import (
	"context"
	"errors"
	"fmt"

	c "github.com/unkn0wn-root/regioncache/codec"
	"github.com/unkn0wn-root/regioncache/txn"
)

// AccessStrategy governs how reads and writes of one region interact with
// in-flight transactions. It is a single type tagged by AccessType; only the
// read-write variant carries soft lock state.
//
// Keys are entity or collection identifiers rendered as strings; V is the
// cached value type, serialized with the strategy's codec.
type AccessStrategy[V any] struct {
	kind        AccessType
	region      *Region
	codec       c.Codec[V]
	minimalPuts bool

	rw *softLocks // ReadWrite only; shared by all read-write strategies of the region
}

// NewAccessStrategy builds the strategy of type t over r. AccessDefault uses
// the access type r was built for.
func NewAccessStrategy[V any](r *Region, t AccessType, codec c.Codec[V]) (*AccessStrategy[V], error) {
	if r == nil {
		return nil, fmt.Errorf("regioncache: region is required")
	}
	if codec == nil {
		return nil, fmt.Errorf("regioncache: codec is required")
	}
	if t == AccessDefault {
		t = r.desc.AccessType
	}
	a := &AccessStrategy[V]{kind: t, region: r, codec: codec, minimalPuts: r.minimalPuts}
	switch t {
	case ReadOnly:
		if r.desc.Mutable {
			r.log.Warn("read-only access strategy over mutable data", Fields{"region": r.name})
		}
	case NonstrictReadWrite, Transactional:
	case ReadWrite:
		a.rw = &r.locks
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownAccessType, uint8(t))
	}
	return a, nil
}

// WithMinimalPuts returns a copy of a whose loads skip keys already cached.
func (a *AccessStrategy[V]) WithMinimalPuts(on bool) *AccessStrategy[V] {
	cp := *a
	cp.minimalPuts = on
	return &cp
}

// AccessType reports the strategy variant.
func (a *AccessStrategy[V]) AccessType() AccessType { return a.kind }

// Region returns the region the strategy operates on.
func (a *AccessStrategy[V]) Region() *Region { return a.region }

// MinimalPuts reports whether loads default to minimal puts.
func (a *AccessStrategy[V]) MinimalPuts() bool { return a.minimalPuts }

// Get returns the cached value for key if a transaction started at
// txTimestamp may see it. Store failures are returned as *CacheError.
func (a *AccessStrategy[V]) Get(ctx context.Context, key string, txTimestamp int64) (V, bool, error) {
	var zero V
	if a.kind == ReadWrite {
		return a.rwGet(ctx, key, txTimestamp)
	}
	e, ok, err := a.region.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	it, isItem := e.(*Item)
	if !isItem {
		return zero, false, nil
	}
	return a.decode(ctx, key, it)
}

// PutFromLoad caches a value just loaded from the database. It returns
// false when the value was not cached, which is never an error.
func (a *AccessStrategy[V]) PutFromLoad(ctx context.Context, key string, value V, txTimestamp int64, version txn.Version, minimalPutOverride bool) (bool, error) {
	if !a.region.enabled || key == "" {
		return false, nil
	}
	if a.kind == ReadWrite {
		return a.rwPutFromLoad(ctx, key, value, txTimestamp, version, minimalPutOverride)
	}
	if minimalPutOverride {
		present, err := a.region.Contains(ctx, key)
		if err != nil {
			return false, err
		}
		if present {
			a.rejected(key, "minimal_put")
			return false, nil
		}
	}
	return a.putItem(ctx, key, value, version)
}

// LockItem is called before a write to key. Only the read-write strategy
// returns a lock; the others return nil.
func (a *AccessStrategy[V]) LockItem(ctx context.Context, key string, version txn.Version) (*SoftLock, error) {
	if a.kind == ReadWrite {
		return a.rwLockItem(ctx, key, version)
	}
	return nil, nil
}

// UnlockItem is called after the transaction that locked key completed,
// whether it committed or rolled back.
func (a *AccessStrategy[V]) UnlockItem(ctx context.Context, key string, lock *SoftLock) error {
	switch a.kind {
	case ReadWrite:
		return a.rwUnlockItem(ctx, key, lock)
	case ReadOnly, NonstrictReadWrite:
		return a.Evict(ctx, key)
	}
	return nil
}

// Insert is called when a new row is inserted, before commit.
func (a *AccessStrategy[V]) Insert(ctx context.Context, key string, value V, version txn.Version) (bool, error) {
	if a.kind == Transactional {
		return a.putItem(ctx, key, value, version)
	}
	return false, nil
}

// AfterInsert is called after the inserting transaction committed.
func (a *AccessStrategy[V]) AfterInsert(ctx context.Context, key string, value V, version txn.Version) (bool, error) {
	switch a.kind {
	case ReadOnly:
		return a.putItem(ctx, key, value, version)
	case ReadWrite:
		return a.rwAfterInsert(ctx, key, value, version)
	}
	return false, nil
}

// Update is called when a row is updated, before commit.
func (a *AccessStrategy[V]) Update(ctx context.Context, key string, value V, currentVersion, previousVersion txn.Version) (bool, error) {
	switch a.kind {
	case ReadOnly:
		return false, ErrReadOnlyUpdate
	case NonstrictReadWrite:
		return false, a.Remove(ctx, key)
	case Transactional:
		return a.putItem(ctx, key, value, currentVersion)
	}
	return false, nil
}

// AfterUpdate is called after the updating transaction committed, with the
// lock LockItem returned.
func (a *AccessStrategy[V]) AfterUpdate(ctx context.Context, key string, value V, currentVersion, previousVersion txn.Version, lock *SoftLock) (bool, error) {
	switch a.kind {
	case ReadOnly:
		return false, ErrReadOnlyUpdate
	case NonstrictReadWrite:
		return false, a.UnlockItem(ctx, key, lock)
	case ReadWrite:
		return a.rwAfterUpdate(ctx, key, value, currentVersion, lock)
	}
	return false, nil
}

// Remove is called when key is deleted or otherwise invalidated by a write.
// Failures fall back to evicting the whole region.
func (a *AccessStrategy[V]) Remove(ctx context.Context, key string) error {
	if a.kind == ReadWrite {
		return a.rwRemove(ctx, key)
	}
	return a.Evict(ctx, key)
}

// RemoveAll invalidates the whole region. A failed eviction is retried
// once through the evict-all fallback.
func (a *AccessStrategy[V]) RemoveAll(ctx context.Context) error {
	return a.evictAllAdvisory(ctx, "remove_all")
}

// Evict removes key from the region. It is advisory: failures fall back to
// evicting the region.
func (a *AccessStrategy[V]) Evict(ctx context.Context, key string) error {
	if err := a.region.Evict(ctx, key); err != nil {
		return a.fallback(ctx, "evict", err)
	}
	return nil
}

// EvictAll removes everything from the region.
func (a *AccessStrategy[V]) EvictAll(ctx context.Context) error {
	return a.region.EvictAll(ctx)
}

// LockRegion is called before a bulk operation that touches the whole
// region and evicts it. Only the read-write strategy returns a lock; while
// that lock is held the region reads as empty and refuses loads, even if
// the eviction failed.
func (a *AccessStrategy[V]) LockRegion(ctx context.Context) (*SoftLock, error) {
	var l *SoftLock
	if a.kind == ReadWrite {
		l = a.rwLockRegion()
	}
	return l, a.evictAllAdvisory(ctx, "lock_region")
}

// UnlockRegion is called after the bulk operation completed. It evicts the
// region again.
func (a *AccessStrategy[V]) UnlockRegion(ctx context.Context, lock *SoftLock) error {
	if a.kind == ReadWrite {
		a.rwUnlockRegion(lock)
	}
	return a.evictAllAdvisory(ctx, "unlock_region")
}

func (a *AccessStrategy[V]) evictAllAdvisory(ctx context.Context, op string) error {
	if err := a.region.EvictAll(ctx); err != nil {
		return a.fallback(ctx, op, err)
	}
	return nil
}

func (a *AccessStrategy[V]) putItem(ctx context.Context, key string, value V, version txn.Version) (bool, error) {
	payload, err := a.codec.Encode(value)
	if err != nil {
		return false, cacheErr("encode", a.region.name, key, err)
	}
	it := &Item{Value: payload, Version: version, Timestamp: a.region.NextTimestamp()}
	if err := a.region.Put(ctx, key, it); err != nil {
		if errors.Is(err, ErrRejected) {
			a.rejected(key, "store_rejected")
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *AccessStrategy[V]) decode(ctx context.Context, key string, it *Item) (V, bool, error) {
	v, err := a.codec.Decode(it.Value)
	if err != nil {
		a.region.selfHeal(ctx, key, it.raw, "value_decode", false)
		var zero V
		return zero, false, nil
	}
	return v, true, nil
}

func (a *AccessStrategy[V]) rejected(key, reason string) {
	a.region.hooks.PutFromLoadRejected(a.region.name, key, reason)
	a.region.log.Debug("putFromLoad skipped", Fields{"region": a.region.name, "key": key, "reason": reason})
}

// fallback handles a failed advisory operation by evicting the region.
func (a *AccessStrategy[V]) fallback(ctx context.Context, op string, err error) error {
	a.region.hooks.Fallback(a.region.name, op, err)
	a.region.log.Warn("advisory cache operation failed; evicting region", Fields{"region": a.region.name, "op": op, "err": err})
	if eerr := a.EvictAll(ctx); eerr != nil {
		return &FallbackError{Op: op, Region: a.region.name, Err: err, EvictErr: eerr}
	}
	return nil
}
