package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestItemRoundTrip(t *testing.T) {
	cases := []Item{
		{Epoch: 0, Timestamp: 1, Payload: nil},
		{Epoch: 3, Timestamp: 42 << 12, VersionValid: true, Version: 7, Payload: []byte("hello")},
		{Epoch: math.MaxUint64, Timestamp: math.MaxInt64, VersionValid: true, Version: -1, Payload: []byte{0, 1, 2}},
	}
	for _, tc := range cases {
		got, err := DecodeItem(EncodeItem(tc))
		if err != nil {
			t.Fatalf("DecodeItem(%+v): %v", tc, err)
		}
		if got.Epoch != tc.Epoch || got.Timestamp != tc.Timestamp ||
			got.VersionValid != tc.VersionValid || got.Version != tc.Version {
			t.Fatalf("header mismatch: got %+v want %+v", got, tc)
		}
		if !bytes.Equal(got.Payload, tc.Payload) {
			t.Fatalf("payload mismatch: got %x want %x", got.Payload, tc.Payload)
		}
	}
}

func TestLockRoundTrip(t *testing.T) {
	in := Lock{
		Epoch:           9,
		Source:          [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		ID:              77,
		Multiplicity:    2,
		Concurrent:      true,
		VersionValid:    true,
		Version:         5,
		AcquiredAt:      100,
		Timeout:         200,
		UnlockTimestamp: 0,
	}
	got, err := DecodeLock(EncodeLock(in))
	if err != nil {
		t.Fatalf("DecodeLock: %v", err)
	}
	if got != in {
		t.Fatalf("lock mismatch:\n got %+v\nwant %+v", got, in)
	}
}

func TestPeek(t *testing.T) {
	k, epoch, err := Peek(EncodeItem(Item{Epoch: 5}))
	if err != nil || k != KindItem || epoch != 5 {
		t.Fatalf("Peek item: kind=%v epoch=%d err=%v", k, epoch, err)
	}
	k, epoch, err = Peek(EncodeLock(Lock{Epoch: 6}))
	if err != nil || k != KindLock || epoch != 6 {
		t.Fatalf("Peek lock: kind=%v epoch=%d err=%v", k, epoch, err)
	}
}

func TestItemRejectsTrailingBytes(t *testing.T) {
	enc := append(EncodeItem(Item{Payload: []byte("x")}), 0xDE, 0xAD)
	if _, err := DecodeItem(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestCorruptInputs(t *testing.T) {
	item := EncodeItem(Item{Epoch: 1, Payload: []byte("abc")})
	lock := EncodeLock(Lock{Epoch: 1, ID: 1})

	badMagic := append([]byte(nil), item...)
	badMagic[0] = 'X'

	badVer := append([]byte(nil), item...)
	badVer[4] = version + 1

	badKind := append([]byte(nil), item...)
	badKind[5] = 9

	badLen := append([]byte(nil), item...)
	binary.BigEndian.PutUint32(badLen[hdrLen+8+1+8:], 1<<30)

	badFlags := append([]byte(nil), lock...)
	badFlags[hdrLen+16+8+4] = 0x80

	for name, b := range map[string][]byte{
		"empty":     nil,
		"short":     item[:hdrLen-1],
		"magic":     badMagic,
		"version":   badVer,
		"kind":      badKind,
		"vlen":      badLen,
		"truncated": item[:len(item)-1],
	} {
		if _, err := DecodeItem(b); err != ErrCorrupt {
			t.Fatalf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
	if _, err := DecodeLock(badFlags); err != ErrCorrupt {
		t.Fatalf("lock flags: expected ErrCorrupt, got %v", err)
	}
	if _, err := DecodeLock(lock[:len(lock)-1]); err != ErrCorrupt {
		t.Fatalf("lock truncated: expected ErrCorrupt")
	}
	if _, err := DecodeItem(lock); err != ErrCorrupt {
		t.Fatalf("lock decoded as item")
	}
	if _, err := DecodeLock(item); err != ErrCorrupt {
		t.Fatalf("item decoded as lock")
	}
}
