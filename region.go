package regioncache

import (
	"bytes"
	"context"
	"time"

	gen "github.com/unkn0wn-root/regioncache/genstore"
	"github.com/unkn0wn-root/regioncache/internal/stripe"
	pr "github.com/unkn0wn-root/regioncache/provider"
	"github.com/unkn0wn-root/regioncache/timestamp"
)

// Region is a named keyed partition of the cache. It has no transactional
// semantics of its own; access strategies layer those on top.
//
// All operations are safe for concurrent use. An empty key or a nil entry
// makes Get miss and Put/Evict do nothing. Read-write strategies write a key
// only while holding its stripe; self-healing deletes take it too.
type Region struct {
	name     string
	prefix   string // "region:<ns>:<name>:" or "region:<name>:"
	desc     DataDescription
	provider pr.Provider
	gens     gen.GenStore
	clock    *timestamp.Source
	timeout  int64 // soft lock timeout in timestamp units
	ttl      time.Duration
	lockTTL  time.Duration // soft locks outlive their timeout; 0 => no expiry
	log      Logger
	hooks    Hooks
	stripes  *stripe.Set
	enabled  bool

	minimalPuts bool
	locks       softLocks
}

// Name returns the region name.
func (r *Region) Name() string { return r.name }

// Description returns the data description the region was built for.
func (r *Region) Description() DataDescription { return r.desc }

// Timeout is the soft lock clock-skew window in timestamp units.
func (r *Region) Timeout() int64 { return r.timeout }

// NextTimestamp returns a fresh timestamp from the factory's source.
func (r *Region) NextTimestamp() int64 { return r.clock.Next() }

// Enabled reports whether the region stores anything at all.
func (r *Region) Enabled() bool { return r.enabled }

func (r *Region) storageKey(key string) string { return r.prefix + key }

// Get returns the live entry for key. Corrupt entries and entries written
// before the last EvictAll are deleted and reported as a miss.
func (r *Region) Get(ctx context.Context, key string) (Entry, bool, error) {
	return r.get(ctx, key, false)
}

// get is Get for callers that may already hold key's stripe.
func (r *Region) get(ctx context.Context, key string, held bool) (Entry, bool, error) {
	if !r.enabled || key == "" {
		return nil, false, nil
	}
	raw, ok, err := r.provider.Get(ctx, r.storageKey(key))
	if err != nil {
		return nil, false, cacheErr("get", r.name, key, err)
	}
	if !ok {
		return nil, false, nil
	}
	e, epoch, err := decodeEntry(raw, r.name, key)
	if err != nil {
		r.selfHeal(ctx, key, raw, "corrupt", held)
		return nil, false, nil
	}
	cur, err := r.epoch(ctx)
	if err != nil {
		return nil, false, cacheErr("get", r.name, key, err)
	}
	if epoch != cur {
		r.selfHeal(ctx, key, raw, "stale_epoch", held)
		return nil, false, nil
	}
	return e, true, nil
}

// Put stores e under key, replacing whatever was there. It returns
// ErrRejected (wrapped) if the store declined the write.
func (r *Region) Put(ctx context.Context, key string, e Entry) error {
	if !r.enabled || key == "" || e == nil {
		return nil
	}
	if it, ok := e.(*Item); ok && it == nil {
		return nil
	}
	if l, ok := e.(*SoftLock); ok && l == nil {
		return nil
	}
	epoch, err := r.epoch(ctx)
	if err != nil {
		return cacheErr("put", r.name, key, err)
	}
	k := r.storageKey(key)
	_, isLock := e.(*SoftLock)
	ttl := r.ttl
	if isLock {
		ttl = r.lockTTL
	}
	b := encodeEntry(e, epoch)
	ok, err := r.provider.Set(ctx, k, b, int64(len(b)), ttl)
	if err != nil {
		return cacheErr("put", r.name, key, err)
	}
	if !ok {
		r.hooks.ProviderSetRejected(k, isLock)
		r.log.Debug("region put rejected by provider (pressure)", Fields{"region": r.name, "key": key, "lock": isLock})
		return cacheErr("put", r.name, key, ErrRejected)
	}
	return nil
}

// Contains reports whether key currently holds a live entry.
func (r *Region) Contains(ctx context.Context, key string) (bool, error) {
	return r.contains(ctx, key, false)
}

func (r *Region) contains(ctx context.Context, key string, held bool) (bool, error) {
	_, ok, err := r.get(ctx, key, held)
	return ok, err
}

// Evict removes key.
func (r *Region) Evict(ctx context.Context, key string) error {
	if !r.enabled || key == "" {
		return nil
	}
	return cacheErr("evict", r.name, key, r.provider.Del(ctx, r.storageKey(key)))
}

// EvictAll invalidates every entry of the region by bumping its generation.
// It is not atomic with concurrent puts: a put that read the old generation
// may land afterwards and is then discarded on its first read.
func (r *Region) EvictAll(ctx context.Context) error {
	if !r.enabled {
		return nil
	}
	g, err := r.gens.Bump(ctx, r.name)
	if err != nil {
		r.hooks.EpochError(r.name, err)
		r.log.Error("region evict-all failed (generation bump)", Fields{"region": r.name, "err": err})
		return cacheErr("evict_all", r.name, "", err)
	}
	// soft locks went with the old generation; refuse loads that began before
	r.locks.raiseFence(r.NextTimestamp())
	r.log.Debug("region evicted", Fields{"region": r.name, "gen": g})
	return nil
}

func (r *Region) epoch(ctx context.Context) (uint64, error) {
	g, err := r.gens.Snapshot(ctx, r.name)
	if err != nil {
		r.hooks.EpochError(r.name, err)
		r.log.Warn("region generation snapshot error", Fields{"region": r.name, "err": err})
		return 0, err
	}
	return g, nil
}

// selfHeal deletes key if it still holds the bytes judged bad. A writer may
// have replaced them since they were read; that entry is left alone.
func (r *Region) selfHeal(ctx context.Context, key string, bad []byte, reason string, held bool) {
	if !held {
		unlock := r.stripes.Lock(key)
		defer unlock()
	}
	k := r.storageKey(key)
	cur, ok, err := r.provider.Get(ctx, k)
	if err != nil || !ok || !bytes.Equal(cur, bad) {
		return
	}
	_ = r.provider.Del(ctx, k)
	r.hooks.SelfHeal(k, reason)
	r.log.Debug("region entry self-healed", Fields{"region": r.name, "key": k, "reason": reason})
}
