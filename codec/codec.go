package codec

// Codec encodes/decodes cached values V to []byte for a region's byte store.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
