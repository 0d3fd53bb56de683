// Package wire frames a cache entry's metadata and payload into a single
// byte record for backends whose storage engine only holds opaque values.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("wire: corrupt record")
	magic4     = [...]byte{'R', 'C', 'H', 'E'}
)

// Record is one stored entry. Timestamps are unix nanos; ExpiresAt = 0 means
// no expiration.
type Record struct {
	CreatedAt int64
	ExpiresAt int64
	Hits      uint64
	Payload   []byte
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames r as:
//
//	magic(4) | ver(1) | created(i64 be) | expires(i64 be) | hits(u64 be) | vlen(u32 be) | payload(vlen)
func Encode(r Record) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 8 + 8 + 8 + 4 + len(r.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(r.CreatedAt))
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], uint64(r.ExpiresAt))
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], r.Hits)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(r.Payload)))
	buf.Write(u4[:])

	buf.Write(r.Payload)
	return buf.Bytes()
}

func Decode(b []byte) (Record, error) {
	const hdr = 4 + 1 + 8 + 8 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return Record{}, ErrCorrupt
	}

	off := 5

	created := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	expires := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	hits := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off { // reject short and trailing bytes alike
		return Record{}, ErrCorrupt
	}

	return Record{
		CreatedAt: created,
		ExpiresAt: expires,
		Hits:      hits,
		Payload:   b[off : off+vlen],
	}, nil
}
