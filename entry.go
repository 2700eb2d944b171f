package regioncache

import (
	"github.com/google/uuid"

	"github.com/unkn0wn-root/regioncache/internal/wire"
	"github.com/unkn0wn-root/regioncache/txn"
)

// Entry is what a region holds for a key: either an *Item or a *SoftLock,
// never both.
type Entry interface {
	isEntry()
}

// Item is a cached value with the version it was loaded at and the
// timestamp it was cached at.
type Item struct {
	Value     []byte
	Version   txn.Version
	Timestamp int64

	raw []byte // stored frame, set when read from a region
}

func (*Item) isEntry() {}

// IsReadable reports whether a transaction started at txTimestamp may read
// the item: only items cached before the transaction started are visible.
func (i *Item) IsReadable(txTimestamp int64) bool {
	return txTimestamp > i.Timestamp
}

// IsWriteable reports whether a value at version v may replace the item.
// Unversioned items are never replaced by a load.
func (i *Item) IsWriteable(_ int64, v txn.Version) bool {
	return i.Version.Less(v)
}

// SoftLock marks a key as being written by at least one transaction.
// While Multiplicity > 0 the key reads as a miss and loads may not cache it.
// A released lock is evicted with its key. A lock with Multiplicity 0 only
// exists as the fence left behind when a holder's lock expired; it refuses
// values loaded before UnlockTimestamp.
type SoftLock struct {
	Key             string
	Region          string
	Source          uuid.UUID // strategy instance that issued the lock
	ID              uint64
	Multiplicity    uint32
	Concurrent      bool // re-entered by an overlapping writer
	AcquiredAt      int64
	Timeout         int64 // past this timestamp loads may overwrite the lock
	UnlockTimestamp int64
	Version         txn.Version
}

func (*SoftLock) isEntry() {}

// Locked reports whether any holder still owns the lock.
func (l *SoftLock) Locked() bool { return l.Multiplicity > 0 }

// Matches reports whether o is the same lock acquisition as l.
func (l *SoftLock) Matches(o *SoftLock) bool {
	return l != nil && o != nil && l.Source == o.Source && l.ID == o.ID
}

// IsWriteable reports whether a value loaded by a transaction started at
// txTimestamp, at version v, may replace the lock.
func (l *SoftLock) IsWriteable(txTimestamp int64, v txn.Version) bool {
	if txTimestamp > l.Timeout {
		return true // holder presumed dead
	}
	if l.Multiplicity > 0 {
		return false
	}
	if !l.Version.Valid {
		return txTimestamp > l.UnlockTimestamp
	}
	return l.Version.Less(v)
}

// relock re-enters a held lock for an overlapping writer.
func (l *SoftLock) relock(timeout int64) {
	l.Concurrent = true
	l.Multiplicity++
	l.Timeout = timeout
}

// unlock releases one holder.
func (l *SoftLock) unlock() {
	if l.Multiplicity > 0 {
		l.Multiplicity--
	}
}

func (l *SoftLock) clone() *SoftLock {
	c := *l
	return &c
}

func encodeEntry(e Entry, epoch uint64) []byte {
	switch e := e.(type) {
	case *Item:
		return wire.EncodeItem(wire.Item{
			Epoch:        epoch,
			Timestamp:    e.Timestamp,
			VersionValid: e.Version.Valid,
			Version:      e.Version.N,
			Payload:      e.Value,
		})
	case *SoftLock:
		return wire.EncodeLock(wire.Lock{
			Epoch:           epoch,
			Source:          e.Source,
			ID:              e.ID,
			Multiplicity:    e.Multiplicity,
			Concurrent:      e.Concurrent,
			VersionValid:    e.Version.Valid,
			Version:         e.Version.N,
			AcquiredAt:      e.AcquiredAt,
			Timeout:         e.Timeout,
			UnlockTimestamp: e.UnlockTimestamp,
		})
	}
	return nil
}

func decodeEntry(b []byte, region, key string) (Entry, uint64, error) {
	kind, _, err := wire.Peek(b)
	if err != nil {
		return nil, 0, err
	}
	if kind == wire.KindItem {
		it, err := wire.DecodeItem(b)
		if err != nil {
			return nil, 0, err
		}
		return &Item{
			Value:     it.Payload,
			Version:   txn.Version{N: it.Version, Valid: it.VersionValid},
			Timestamp: it.Timestamp,
			raw:       b,
		}, it.Epoch, nil
	}
	l, err := wire.DecodeLock(b)
	if err != nil {
		return nil, 0, err
	}
	return &SoftLock{
		Key:             key,
		Region:          region,
		Source:          l.Source,
		ID:              l.ID,
		Multiplicity:    l.Multiplicity,
		Concurrent:      l.Concurrent,
		AcquiredAt:      l.AcquiredAt,
		Timeout:         l.Timeout,
		UnlockTimestamp: l.UnlockTimestamp,
		Version:         txn.Version{N: l.Version, Valid: l.VersionValid},
	}, l.Epoch, nil
}
