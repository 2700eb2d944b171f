package genstore

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func exerciseStore(t *testing.T, s GenStore) {
	t.Helper()
	ctx := context.Background()

	if g, err := s.Snapshot(ctx, "users"); err != nil || g != 0 {
		t.Fatalf("Snapshot missing: g=%d err=%v", g, err)
	}
	for want := uint64(1); want <= 3; want++ {
		g, err := s.Bump(ctx, "users")
		if err != nil || g != want {
			t.Fatalf("Bump: g=%d err=%v want %d", g, err, want)
		}
	}
	if g, err := s.Snapshot(ctx, "users"); err != nil || g != 3 {
		t.Fatalf("Snapshot after bumps: g=%d err=%v", g, err)
	}
	if g, _ := s.Snapshot(ctx, "orders"); g != 0 {
		t.Fatalf("regions not isolated: orders=%d", g)
	}
}

func TestLocalGenStore(t *testing.T) {
	s := NewLocalGenStore()
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	exerciseStore(t, s)
}

func TestLocalConcurrentBumps(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = s.Bump(ctx, "r")
			}
		}()
	}
	wg.Wait()
	if g, _ := s.Snapshot(ctx, "r"); g != 3200 {
		t.Fatalf("lost bumps: %d", g)
	}
}

func TestRedisGenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisGenStore(rdb, "app")
	exerciseStore(t, s)

	if got, err := mr.Get("gen:app:users"); err != nil || got != "3" {
		t.Fatalf("redis key: %q err=%v", got, err)
	}
}

func TestRedisGenStoreParseError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	if err := mr.Set("gen:app:users", "not-a-number"); err != nil {
		t.Fatal(err)
	}
	s := NewRedisGenStore(rdb, "app")
	if _, err := s.Snapshot(context.Background(), "users"); err == nil {
		t.Fatalf("expected parse error")
	}
}
