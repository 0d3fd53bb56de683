package codec

// Codec encodes/decodes values V to []byte for storage. Decode(Encode(v))
// must reproduce v exactly for every V the codec supports; round-trip
// fidelity is part of the contract the cache relies on.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
