// Package stripe guards per-key read-modify-write sequences with a fixed set
// of mutexes chosen by key hash, so unrelated keys rarely contend.
package stripe

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultCount is used when New is given a non-positive count.
const DefaultCount = 256

// Set is a fixed array of mutexes. The zero value is not usable.
type Set struct {
	mus  []sync.Mutex
	mask uint64
}

// New returns a Set with count rounded up to a power of two.
func New(count int) *Set {
	if count <= 0 {
		count = DefaultCount
	}
	n := 1
	for n < count {
		n <<= 1
	}
	return &Set{mus: make([]sync.Mutex, n), mask: uint64(n - 1)}
}

// Len returns the number of stripes.
func (s *Set) Len() int { return len(s.mus) }

func (s *Set) index(key string) int {
	return int(xxhash.Sum64String(key) & s.mask)
}

// Lock locks the stripe owning key and returns its unlock func.
func (s *Set) Lock(key string) (unlock func()) {
	mu := &s.mus[s.index(key)]
	mu.Lock()
	return mu.Unlock
}

// Do runs fn while holding key's stripe.
func (s *Set) Do(key string, fn func()) {
	unlock := s.Lock(key)
	defer unlock()
	fn()
}
