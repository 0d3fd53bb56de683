package recache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// keyEnc canonicalizes arguments with RFC 8949 core deterministic encoding so
// equal argument sets always produce identical bytes before hashing.
var keyEnc cbor.EncMode

func init() {
	eo := cbor.CoreDetEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		panic(err)
	}
	keyEnc = em
}

// MakeKey derives a stable cache key from an ordered argument list.
// Identical arguments in identical order always produce the same key; any
// difference in value, count or position produces a different key.
func MakeKey(args ...any) (string, error) {
	return MakeKeyKV(args, nil)
}

// MakeKeyKV derives a stable cache key from positional plus named arguments.
// Positional arguments are order-sensitive; named arguments are sorted by
// name first, so their map order never affects the key.
func MakeKeyKV(args []any, named map[string]any) (string, error) {
	names := make([]string, 0, len(named))
	for n := range named {
		names = append(names, n)
	}
	sort.Strings(names)

	pairs := make([][2]any, 0, len(names))
	for _, n := range names {
		pairs = append(pairs, [2]any{n, named[n]})
	}

	canon, err := keyEnc.Marshal([2]any{args, pairs})
	if err != nil {
		return "", fmt.Errorf("%w: cache key arguments: %v", ErrEncoding, err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:16]), nil
}
