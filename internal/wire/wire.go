// Package wire frames region entries for byte stores.
//
// Every entry starts with a common header carrying the region epoch it was
// written under:
//
//	magic(4) | ver(1) | kind(1) | epoch(u64 be)
//
// followed by the kind-specific body (see EncodeItem and EncodeLock).
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version  byte = 1
	kindItem byte = 1
	kindLock byte = 2

	hdrLen = 4 + 1 + 1 + 8
)

var (
	ErrCorrupt = errors.New("regioncache: corrupt entry")
	magic4     = [...]byte{'L', '2', 'R', 'C'}
)

// Kind tells which body follows the header.
type Kind byte

const (
	KindItem Kind = Kind(kindItem)
	KindLock Kind = Kind(kindLock)
)

// Item is a cached value together with the version and timestamp it was
// cached at.
type Item struct {
	Epoch        uint64
	Timestamp    int64
	VersionValid bool
	Version      int64
	Payload      []byte
}

// Lock is a soft lock record.
type Lock struct {
	Epoch           uint64
	Source          [16]byte
	ID              uint64
	Multiplicity    uint32
	Concurrent      bool
	VersionValid    bool
	Version         int64
	AcquiredAt      int64
	Timeout         int64
	UnlockTimestamp int64
}

const (
	flagConcurrent   byte = 1 << 0
	flagVersionValid byte = 1 << 1

	lockBodyLen = 16 + 8 + 4 + 1 + 8 + 8 + 8 + 8
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

func header(buf *bytes.Buffer, kind byte, epoch uint64) {
	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kind)
	var u8 [8]byte
	binary.BigEndian.PutUint64(u8[:], epoch)
	buf.Write(u8[:])
}

// Peek returns the kind and epoch of an encoded entry.
func Peek(b []byte) (Kind, uint64, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return 0, 0, ErrCorrupt
	}
	switch b[5] {
	case kindItem, kindLock:
	default:
		return 0, 0, ErrCorrupt
	}
	return Kind(b[5]), binary.BigEndian.Uint64(b[6:14]), nil
}

// Item body: ts(i64 be) | flags(1) | version(i64 be) | vlen(u32 be) | payload(vlen)
func EncodeItem(it Item) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + 8 + 1 + 8 + 4 + len(it.Payload))
	header(&buf, kindItem, it.Epoch)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(it.Timestamp))
	buf.Write(u8[:])

	var flags byte
	if it.VersionValid {
		flags |= flagVersionValid
	}
	buf.WriteByte(flags)

	binary.BigEndian.PutUint64(u8[:], uint64(it.Version))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(it.Payload)))
	buf.Write(u4[:])

	buf.Write(it.Payload)
	return buf.Bytes()
}

func DecodeItem(b []byte) (Item, error) {
	const fixed = hdrLen + 8 + 1 + 8 + 4
	k, epoch, err := Peek(b)
	if err != nil || k != KindItem || len(b) < fixed {
		return Item{}, ErrCorrupt
	}
	off := hdrLen
	it := Item{Epoch: epoch}

	it.Timestamp = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	flags := b[off]
	off++
	if flags&^flagVersionValid != 0 {
		return Item{}, ErrCorrupt
	}
	it.VersionValid = flags&flagVersionValid != 0

	it.Version = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off { // exact; trailing bytes are corruption
		return Item{}, ErrCorrupt
	}
	if vlen > 0 {
		it.Payload = b[off : off+vlen]
	}
	return it, nil
}

// Lock body:
//
//	source(16) | id(u64) | multiplicity(u32) | flags(1) | version(i64)
//	acquiredAt(i64) | timeout(i64) | unlockTs(i64)
func EncodeLock(l Lock) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + lockBodyLen)
	header(&buf, kindLock, l.Epoch)

	var u8 [8]byte
	var u4 [4]byte

	buf.Write(l.Source[:])

	binary.BigEndian.PutUint64(u8[:], l.ID)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], l.Multiplicity)
	buf.Write(u4[:])

	var flags byte
	if l.Concurrent {
		flags |= flagConcurrent
	}
	if l.VersionValid {
		flags |= flagVersionValid
	}
	buf.WriteByte(flags)

	for _, v := range [...]int64{l.Version, l.AcquiredAt, l.Timeout, l.UnlockTimestamp} {
		binary.BigEndian.PutUint64(u8[:], uint64(v))
		buf.Write(u8[:])
	}
	return buf.Bytes()
}

func DecodeLock(b []byte) (Lock, error) {
	k, epoch, err := Peek(b)
	if err != nil || k != KindLock || len(b) != hdrLen+lockBodyLen {
		return Lock{}, ErrCorrupt
	}
	off := hdrLen
	l := Lock{Epoch: epoch}

	copy(l.Source[:], b[off:off+16])
	off += 16

	l.ID = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	l.Multiplicity = binary.BigEndian.Uint32(b[off : off+4])
	off += 4

	flags := b[off]
	off++
	if flags&^(flagConcurrent|flagVersionValid) != 0 {
		return Lock{}, ErrCorrupt
	}
	l.Concurrent = flags&flagConcurrent != 0
	l.VersionValid = flags&flagVersionValid != 0

	next := func() int64 {
		v := int64(binary.BigEndian.Uint64(b[off : off+8]))
		off += 8
		return v
	}
	l.Version = next()
	l.AcquiredAt = next()
	l.Timeout = next()
	l.UnlockTimestamp = next()
	return l, nil
}
