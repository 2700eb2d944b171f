package regioncache

import (
	"context"
	"errors"
	"testing"

	"github.com/unkn0wn-root/regioncache/txn"
)

func buildRegion(t *testing.T, fx *fixture) *Region {
	t.Helper()
	r, err := fx.f.BuildRegion("r", DataDescription{Mutable: true, Versioned: true})
	if err != nil {
		t.Fatalf("BuildRegion: %v", err)
	}
	return r
}

func TestRegionPutGet(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	r := buildRegion(t, fx)

	if r.storageKey("1") != "region:test:r:1" {
		t.Fatalf("storage key: %q", r.storageKey("1"))
	}
	if _, ok, err := r.Get(ctx, "1"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}

	in := &Item{Value: []byte("v"), Version: txn.V(3), Timestamp: r.NextTimestamp()}
	if err := r.Put(ctx, "1", in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	e, ok, err := r.Get(ctx, "1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	got, isItem := e.(*Item)
	if !isItem || string(got.Value) != "v" || !got.Version.Equal(txn.V(3)) || got.Timestamp != in.Timestamp {
		t.Fatalf("unexpected entry %#v", e)
	}
	if present, _ := r.Contains(ctx, "1"); !present {
		t.Fatalf("Contains should report true")
	}

	if err := r.Evict(ctx, "1"); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if present, _ := r.Contains(ctx, "1"); present {
		t.Fatalf("Contains after Evict should report false")
	}
}

func TestRegionSoftLockRoundTrip(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	r := buildRegion(t, fx)

	l := &SoftLock{Source: r.locks.source, ID: 9, Multiplicity: 2, Concurrent: true, Timeout: 100, Version: txn.V(1)}
	if err := r.Put(ctx, "k", l); err != nil {
		t.Fatalf("Put lock: %v", err)
	}
	e, ok, err := r.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	got, isLock := e.(*SoftLock)
	if !isLock || !got.Matches(l) || got.Multiplicity != 2 || !got.Concurrent || got.Key != "k" || got.Region != "r" {
		t.Fatalf("unexpected lock %#v", e)
	}
}

func TestRegionNoOps(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	r := buildRegion(t, fx)

	var nilItem *Item
	var nilLock *SoftLock
	for _, e := range []Entry{nil, nilItem, nilLock} {
		if err := r.Put(ctx, "k", e); err != nil {
			t.Fatalf("Put(nil): %v", err)
		}
	}
	if err := r.Put(ctx, "", &Item{Value: []byte("x")}); err != nil {
		t.Fatalf("Put empty key: %v", err)
	}
	if len(fx.mp.m) != 0 {
		t.Fatalf("no-op puts wrote %d entries", len(fx.mp.m))
	}
	if _, ok, err := r.Get(ctx, ""); ok || err != nil {
		t.Fatalf("Get empty key: ok=%v err=%v", ok, err)
	}
	if err := r.Evict(ctx, ""); err != nil {
		t.Fatalf("Evict empty key: %v", err)
	}
}

func TestRegionSelfHealsCorruptEntry(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	r := buildRegion(t, fx)

	fx.mp.put(r.storageKey("bad"), []byte("not a frame"))
	if _, ok, err := r.Get(ctx, "bad"); err != nil || ok {
		t.Fatalf("corrupt entry should miss, ok=%v err=%v", ok, err)
	}
	if _, ok := fx.mp.raw(r.storageKey("bad")); ok {
		t.Fatalf("corrupt entry was not deleted")
	}
	if len(fx.hooks.heals) != 1 || fx.hooks.heals[0] != "corrupt" {
		t.Fatalf("heals=%v", fx.hooks.heals)
	}
}

func TestRegionEvictAllDropsOlderGeneration(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	r := buildRegion(t, fx)

	for _, k := range []string{"a", "b"} {
		if err := r.Put(ctx, k, &Item{Value: []byte(k), Timestamp: r.NextTimestamp()}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if err := r.EvictAll(ctx); err != nil {
		t.Fatalf("EvictAll: %v", err)
	}
	for _, k := range []string{"a", "b"} {
		if _, ok, err := r.Get(ctx, k); err != nil || ok {
			t.Fatalf("%s should miss after EvictAll, ok=%v err=%v", k, ok, err)
		}
		if _, ok := fx.mp.raw(r.storageKey(k)); ok {
			t.Fatalf("%s stale entry not deleted", k)
		}
	}

	// new writes land in the new generation
	if err := r.Put(ctx, "a", &Item{Value: []byte("a2")}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, _ := r.Contains(ctx, "a"); !ok {
		t.Fatalf("write after EvictAll should be visible")
	}
}

func TestRegionProviderErrors(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	r := buildRegion(t, fx)

	fx.mp.setFailures(errBoom, errBoom, errBoom)
	_, _, err := r.Get(ctx, "1")
	var ce *CacheError
	if !errors.As(err, &ce) || ce.Op != "get" || ce.Region != "r" || ce.Key != "1" || !errors.Is(err, errBoom) {
		t.Fatalf("Get error = %v", err)
	}
	if err := r.Put(ctx, "1", &Item{}); !errors.As(err, &ce) || ce.Op != "put" {
		t.Fatalf("Put error = %v", err)
	}
	if err := r.Evict(ctx, "1"); !errors.As(err, &ce) || ce.Op != "evict" {
		t.Fatalf("Evict error = %v", err)
	}
}

func TestRegionPutRejected(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)
	r := buildRegion(t, fx)

	fx.mp.reject = true
	if err := r.Put(ctx, "1", &Item{}); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestRegionGenerationErrors(t *testing.T) {
	ctx := context.Background()
	gens := &failingGens{}
	fx := newFixture(t, func(o *Options) { o.GenStore = gens })
	r := buildRegion(t, fx)

	if err := r.Put(ctx, "1", &Item{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	gens.setFail(errBoom)
	var ce *CacheError
	if _, _, err := r.Get(ctx, "1"); !errors.As(err, &ce) {
		t.Fatalf("Get with failing generations = %v", err)
	}
	if err := r.EvictAll(ctx); !errors.As(err, &ce) || ce.Op != "evict_all" {
		t.Fatalf("EvictAll with failing generations = %v", err)
	}
}

func TestRegionDisabled(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, func(o *Options) { o.Disabled = true })
	r := buildRegion(t, fx)

	if r.Enabled() {
		t.Fatalf("region should be disabled")
	}
	if err := r.Put(ctx, "1", &Item{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, _ := r.Get(ctx, "1"); ok {
		t.Fatalf("disabled region must not hit")
	}
	if len(fx.mp.m) != 0 {
		t.Fatalf("disabled region wrote to the provider")
	}
}
