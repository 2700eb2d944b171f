package regioncache

import (
	"errors"
	"fmt"
)

var (
	// ErrReadOnlyUpdate is returned when an entity cached read-only is updated.
	ErrReadOnlyUpdate = errors.New("regioncache: can't write to a read-only object")
	// ErrRejected is returned by Region.Put when the store refused the write.
	ErrRejected = errors.New("regioncache: store rejected write")
	// ErrUnknownAccessType is returned for an AccessType outside the four strategies.
	ErrUnknownAccessType = errors.New("regioncache: unknown access type")
)

// CacheError is the single error kind for cache-provider failures. It wraps
// the underlying store, generation-store or codec error.
type CacheError struct {
	Op     string // "get", "put", "evict", "evict_all", "lock_item", ...
	Region string
	Key    string // empty for region-wide operations
	Err    error
}

func (e *CacheError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("regioncache: %s region %q: %v", e.Op, e.Region, e.Err)
	}
	return fmt.Sprintf("regioncache: %s %q in region %q: %v", e.Op, e.Key, e.Region, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

func cacheErr(op, region, key string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CacheError
	if errors.As(err, &ce) {
		return err
	}
	return &CacheError{Op: op, Region: region, Key: key, Err: err}
}

// FallbackError reports an advisory operation whose failure could not even be
// covered by evicting the whole region.
type FallbackError struct {
	Op       string
	Region   string
	Err      error // original failure
	EvictErr error // failure of the evict-all fallback
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("regioncache: %s in region %q failed (%v) and evict-all fallback failed: %v",
		e.Op, e.Region, e.Err, e.EvictErr)
}

func (e *FallbackError) Unwrap() []error {
	return []error{e.Err, e.EvictErr}
}
