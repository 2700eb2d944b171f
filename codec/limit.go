package codec

import (
	"errors"
	"fmt"
)

// ErrTooLarge is wrapped by LimitCodec when a payload exceeds its limit.
var ErrTooLarge = errors.New("codec: payload too large")

// LimitCodec wraps another codec and refuses payloads larger than Max bytes
// in both directions. Oversized values are therefore never cached, and
// oversized bytes read back from a shared store are treated as undecodable.
// If Max <= 0, size limiting is disabled.
type LimitCodec[V any] struct {
	Inner Codec[V]
	Max   int
}

func (c LimitCodec[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.Max > 0 && len(b) > c.Max {
		return nil, fmt.Errorf("%w: encoded %d > %d", ErrTooLarge, len(b), c.Max)
	}
	return b, nil
}

func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.Max > 0 && len(b) > c.Max {
		var zero V
		return zero, fmt.Errorf("%w: %d > %d", ErrTooLarge, len(b), c.Max)
	}
	return c.Inner.Decode(b)
}
