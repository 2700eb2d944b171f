// Package asynchook moves hook calls off the cache's hot path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery: 10, // sample logs: ~every 10th self-heal
//	    RejectEvery:   100,
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	factory, _ := regioncache.New(regioncache.Options{
//	    Namespace: "app:prod",
//	    Provider:  provider,
//	    GenStore:  genstore.NewRedisGenStore(rdb, "app:prod"),
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/regioncache"
)

// Hooks queues events for a pool of workers. When the queue is full, or
// after Close, events are dropped and counted.
type Hooks struct {
	inner regioncache.Hooks
	q     chan func()
	wg    sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ regioncache.Hooks = (*Hooks)(nil)

func New(inner regioncache.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = regioncache.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains the queue and stops the workers.
func (h *Hooks) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.q)
	h.mu.Unlock()
	h.wg.Wait()
}

// Dropped returns the number of events discarded so far.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) SelfHeal(k, r string)            { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) EpochError(rg string, err error) { h.try(func() { h.inner.EpochError(rg, err) }) }
func (h *Hooks) LockExpired(rg, k string)        { h.try(func() { h.inner.LockExpired(rg, k) }) }
func (h *Hooks) PutFromLoadRejected(rg, k, r string) {
	h.try(func() { h.inner.PutFromLoadRejected(rg, k, r) })
}
func (h *Hooks) ProviderSetRejected(k string, l bool) {
	h.try(func() { h.inner.ProviderSetRejected(k, l) })
}
func (h *Hooks) Fallback(rg, op string, err error) {
	h.try(func() { h.inner.Fallback(rg, op, err) })
}
