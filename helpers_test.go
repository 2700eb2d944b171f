package regioncache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	c "github.com/unkn0wn-root/regioncache/codec"
	pr "github.com/unkn0wn-root/regioncache/provider"
	"github.com/unkn0wn-root/regioncache/timestamp"
	"github.com/unkn0wn-root/regioncache/txn"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type memProvider struct {
	mu sync.Mutex
	m  map[string]memEntry

	failGet error
	failSet error
	failDel error
	reject  bool
}

var _ pr.Provider = (*memProvider)(nil)

var errBoom = errors.New("boom")

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failGet != nil {
		return nil, false, p.failGet
	}
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSet != nil {
		return false, p.failSet
	}
	if p.reject {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: append([]byte(nil), value...), exp: exp}
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failDel != nil {
		return p.failDel
	}
	delete(p.m, key)
	return nil
}

func (p *memProvider) Close(_ context.Context) error { return nil }

func (p *memProvider) raw(key string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	return e.v, ok
}

func (p *memProvider) put(key string, b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[key] = memEntry{v: b}
}

func (p *memProvider) setFailures(get, set, del error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failGet, p.failSet, p.failDel = get, set, del
}

// pausingProvider stops the first Get after arm, once it has read the
// stored bytes, until resume is called.
type pausingProvider struct {
	*memProvider
	armed   atomic.Bool
	fetched chan struct{}
	release chan struct{}
}

func newPausingProvider(mp *memProvider) *pausingProvider {
	return &pausingProvider{memProvider: mp, fetched: make(chan struct{}), release: make(chan struct{})}
}

func (p *pausingProvider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := p.memProvider.Get(ctx, key)
	if p.armed.CompareAndSwap(true, false) {
		close(p.fetched)
		<-p.release
	}
	return v, ok, err
}

func (p *pausingProvider) arm()    { p.armed.Store(true) }
func (p *pausingProvider) resume() { close(p.release) }

// failingGens is a GenStore whose calls fail on demand.
type failingGens struct {
	mu   sync.Mutex
	gen  map[string]uint64
	fail error
}

func (g *failingGens) Snapshot(_ context.Context, region string) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return 0, g.fail
	}
	return g.gen[region], nil
}

func (g *failingGens) Bump(_ context.Context, region string) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return 0, g.fail
	}
	if g.gen == nil {
		g.gen = make(map[string]uint64)
	}
	g.gen[region]++
	return g.gen[region], nil
}

func (g *failingGens) Close(context.Context) error { return nil }

func (g *failingGens) setFail(err error) {
	g.mu.Lock()
	g.fail = err
	g.mu.Unlock()
}

// manualClock only moves when told to.
type manualClock struct{ ms atomic.Int64 }

func newManualClock() *manualClock {
	c := &manualClock{}
	c.ms.Store(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	return c
}

func (c *manualClock) now() time.Time          { return time.UnixMilli(c.ms.Load()) }
func (c *manualClock) advance(d time.Duration) { c.ms.Add(d.Milliseconds()) }

// recHooks records events.
type recHooks struct {
	NopHooks
	mu       sync.Mutex
	heals    []string
	rejects  []string
	expired  int
	fallback []string
}

func (h *recHooks) SelfHeal(_, reason string) {
	h.mu.Lock()
	h.heals = append(h.heals, reason)
	h.mu.Unlock()
}

func (h *recHooks) PutFromLoadRejected(_, _, reason string) {
	h.mu.Lock()
	h.rejects = append(h.rejects, reason)
	h.mu.Unlock()
}

func (h *recHooks) LockExpired(string, string) {
	h.mu.Lock()
	h.expired++
	h.mu.Unlock()
}

func (h *recHooks) Fallback(_, op string, _ error) {
	h.mu.Lock()
	h.fallback = append(h.fallback, op)
	h.mu.Unlock()
}

func (h *recHooks) lastReject() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.rejects) == 0 {
		return ""
	}
	return h.rejects[len(h.rejects)-1]
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type fixture struct {
	mp    *memProvider
	clock *manualClock
	hooks *recHooks
	f     *Factory
}

func newFixture(t *testing.T, optsOpt func(*Options)) *fixture {
	t.Helper()
	fx := &fixture{mp: newMemProvider(), clock: newManualClock(), hooks: &recHooks{}}
	opts := Options{
		Provider:    fx.mp,
		Namespace:   "test",
		Timestamper: timestamp.New(fx.clock.now),
		Hooks:       fx.hooks,
		LockTimeout: time.Second,
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	f, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fx.f = f
	return fx
}

func (fx *fixture) strategy(t *testing.T, at AccessType, versioned bool) *AccessStrategy[user] {
	t.Helper()
	r, err := fx.f.BuildRegion("users-"+at.String(), DataDescription{Mutable: true, Versioned: versioned, AccessType: at})
	if err != nil {
		t.Fatalf("BuildRegion: %v", err)
	}
	a, err := NewAccessStrategy[user](r, AccessDefault, c.JSON[user]{})
	if err != nil {
		t.Fatalf("NewAccessStrategy: %v", err)
	}
	return a
}

func mustGet(t *testing.T, a *AccessStrategy[user], key string, ts int64) (user, bool) {
	t.Helper()
	v, ok, err := a.Get(context.Background(), key, ts)
	if err != nil {
		t.Fatalf("Get(%q): %v", key, err)
	}
	return v, ok
}

func mustPut(t *testing.T, a *AccessStrategy[user], key string, v user, ts int64, version txn.Version) bool {
	t.Helper()
	ok, err := a.PutFromLoad(context.Background(), key, v, ts, version, false)
	if err != nil {
		t.Fatalf("PutFromLoad(%q): %v", key, err)
	}
	return ok
}
