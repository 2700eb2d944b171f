package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOROptions tune the CBOR codec.
type CBOROptions struct {
	// Deterministic selects RFC 8949 Core Deterministic encoding, for
	// byte-for-byte stable values. Otherwise PreferredUnsortedEncOptions.
	Deterministic bool
	// MaxNestedLevels bounds decoding depth; 0 keeps the library default.
	MaxNestedLevels int
}

// CBOR is a Codec that serializes values using fxamacker/cbor.
// Construct with NewCBOR or MustCBOR; the zero value falls back to the
// library's default modes.
//
// Decoding rejects duplicate map keys, so a cached value that does not
// decode cleanly is treated as corrupt and self-healed by the region.
// Times are encoded as RFC3339Nano.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

func NewCBOR[V any](opts CBOROptions) (CBOR[V], error) {
	var eo cbor.EncOptions
	if opts.Deterministic {
		eo = cbor.CoreDetEncOptions()
	} else {
		eo = cbor.PreferredUnsortedEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	do := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: opts.MaxNestedLevels,
	}
	dm, err := do.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR is like NewCBOR but panics on error. Meant for package-level
// variables in tests and examples.
func MustCBOR[V any](opts CBOROptions) CBOR[V] {
	c, err := NewCBOR[V](opts)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) {
	if c.enc == nil {
		return cbor.Marshal(v)
	}
	return c.enc.Marshal(v)
}

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	var err error
	if c.dec == nil {
		err = cbor.Unmarshal(b, &v)
	} else {
		err = c.dec.Unmarshal(b, &v)
	}
	return v, err
}
