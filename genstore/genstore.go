// Package genstore keeps the generation (epoch) of each cache region.
//
// Entries are written tagged with the generation current at write time;
// bumping a region's generation invalidates every entry written before it
// without having to enumerate the store. Use LocalGenStore for a single
// process and RedisGenStore when several processes share one byte store.
package genstore

import "context"

// GenStore abstracts where region generations live.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, region string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, region string) (uint64, error)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
