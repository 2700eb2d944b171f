package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/regioncache/provider/providertest"
)

func TestContract(t *testing.T) {
	mr := miniredis.RunT(t)
	p, err := New(Config{
		Client:      goredis.NewClient(&goredis.Options{Addr: mr.Addr()}),
		Prefix:      "test:",
		CloseClient: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	providertest.Run(t, p)
}

func TestPrefixAndErrors(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	p, err := New(Config{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), Prefix: "app:", CloseClient: true})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Set(ctx, "region:r:1", []byte("x"), 1, 0); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("app:region:r:1") {
		t.Fatalf("prefix not applied; keys=%v", mr.Keys())
	}

	mr.Close() // server down: errors must surface, not look like misses
	if _, ok, err := p.Get(ctx, "region:r:1"); err == nil || ok {
		t.Fatalf("expected transport error, got ok=%v err=%v", ok, err)
	}
	_ = p.Close(ctx)
	_ = p.Close(ctx)

	if _, err := New(Config{}); err != ErrNilClient {
		t.Fatalf("New without client: %v", err)
	}
}
