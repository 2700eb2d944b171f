// Package providertest holds a contract test every provider.Provider must pass.
package providertest

import (
	"bytes"
	"context"
	"testing"
	"time"

	pr "github.com/unkn0wn-root/regioncache/provider"
)

// Run checks byte transparency, read-your-writes and delete semantics.
func Run(t *testing.T, p pr.Provider) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := p.Get(ctx, "region:r:missing"); err != nil || ok {
		t.Fatalf("Get missing: ok=%v err=%v", ok, err)
	}

	want := []byte{0, 'L', '2', 0xFF, 0x10}
	ok, err := p.Set(ctx, "region:r:k", want, 1, time.Minute)
	if err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, "region:r:k")
	if err != nil || !ok {
		t.Fatalf("Get after Set: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("not byte-transparent: got %x want %x", got, want)
	}

	// overwrite must be visible immediately
	if _, err := p.Set(ctx, "region:r:k", []byte("v2"), 1, time.Minute); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _, _ := p.Get(ctx, "region:r:k"); string(got) != "v2" {
		t.Fatalf("overwrite not visible: %q", got)
	}

	if err := p.Del(ctx, "region:r:k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := p.Get(ctx, "region:r:k"); ok {
		t.Fatalf("Get after Del should miss")
	}
	if err := p.Del(ctx, "region:r:never"); err != nil {
		t.Fatalf("Del missing: %v", err)
	}
}
