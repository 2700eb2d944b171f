// Package timestamp generates process-wide, strictly increasing timestamps
// used to order cache writes against transaction completion.
//
// A timestamp is unix milliseconds shifted left by Bits, plus a counter
// that disambiguates calls made within the same millisecond:
//
//	ts = unixMillis<<12 | n    (0 <= n < 4096)
//
// Values from different processes stay comparable to within one millisecond.
package timestamp

import (
	"sync/atomic"
	"time"
)

const (
	// Bits is the number of low bits reserved for the in-millisecond counter.
	Bits = 12
	// OneMs is one millisecond expressed in timestamp units.
	OneMs int64 = 1 << Bits
)

// Source hands out strictly increasing timestamps.
// The zero value is not usable; use New.
type Source struct {
	last  atomic.Int64
	clock func() time.Time
}

// New returns a Source reading the given clock. A nil clock means time.Now.
func New(clock func() time.Time) *Source {
	if clock == nil {
		clock = time.Now
	}
	return &Source{clock: clock}
}

var std = New(nil)

// Next returns the next timestamp from the process-wide source.
func Next() int64 { return std.Next() }

// maxRereads bounds how often Next re-reads a clock that has not moved on
// from a millisecond whose counter space is used up.
const maxRereads = 1 << 14

// Next returns a timestamp greater than every value previously returned by s.
// When the current millisecond's counter space is used up it re-reads the
// clock; if the clock still has not moved, the counter carries into the
// next millisecond.
func (s *Source) Next() int64 {
	for rereads := 0; ; rereads++ {
		base := s.clock().UnixMilli() << Bits
		cur := s.last.Load()
		next := cur + 1
		if next < base {
			next = base
		} else if next == base+OneMs && rereads < maxRereads {
			continue
		}
		// next > base+OneMs only when the clock stepped backwards; keep
		// counting from cur so values never repeat.
		if s.last.CompareAndSwap(cur, next) {
			return next
		}
	}
}

// FromDuration converts d into timestamp units.
func FromDuration(d time.Duration) int64 {
	return d.Milliseconds() << Bits
}

// Time returns the wall-clock millisecond a timestamp was taken in.
func Time(ts int64) time.Time {
	return time.UnixMilli(ts >> Bits)
}
