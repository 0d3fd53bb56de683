// Package backend defines the storage abstraction used by recache.
//
// Implementations MUST be byte-for-byte transparent: Fetch must return
// exactly the same value bytes previously passed to Put for a key (no
// metadata prepended, no re-encoding, no mutation). Expiration is recorded
// verbatim but never enforced here; the cache manager treats expired entries
// as absent and instructs removal. A backend has no independent retention
// policy beyond what the manager asks for.
package backend

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks storage transport/IO failures. Implementations wrap
// it so callers can distinguish "not cached" from "cache unreachable" with
// errors.Is. A miss is never an error.
var ErrUnavailable = errors.New("backend unavailable")

// Entry is the unit of storage: encoded value plus the metadata the manager
// needs to enforce TTL semantics uniformly across backends.
type Entry struct {
	Value     []byte
	CreatedAt time.Time
	ExpiresAt time.Time // zero => no expiration
}

// Info is one record of a Scan: enough to drive cleanup, invalidation and
// statistics without fetching values.
type Info struct {
	Key       string
	ExpiresAt time.Time // zero => no expiration
	Size      int64     // encoded value size in bytes
}

// Backend is a keyed store of entries. Must be safe for concurrent use;
// writes to different keys must not serialize behind each other beyond what
// the underlying engine requires.
type Backend interface {
	// Put stores e under key, fully replacing any previous entry and
	// resetting its access count.
	Put(ctx context.Context, key string, e Entry) error

	// Fetch returns (entry, true, nil) when present - including entries
	// whose ExpiresAt has passed - and (Entry{}, false, nil) on a miss.
	// Fetch does not bump the access count.
	Fetch(ctx context.Context, key string) (Entry, bool, error)

	// Touch increments the entry's access count. A touch on an absent key
	// is a no-op.
	Touch(ctx context.Context, key string) error

	// Hits returns the entry's access count; ok=false when absent.
	Hits(ctx context.Context, key string) (n int64, ok bool, err error)

	// Remove deletes key and reports whether an entry was present.
	Remove(ctx context.Context, key string) (bool, error)

	// RemoveIf deletes key only while the stored entry still carries the
	// given expiry, so an eviction removes exactly the entry it observed
	// and never a concurrent replacement. Reports whether it removed one.
	RemoveIf(ctx context.Context, key string, expiresAt time.Time) (bool, error)

	// Scan lists every stored key with its expiry and size. Remote
	// implementations may return an approximation bounded by what the
	// service exposes; they document the limitation.
	Scan(ctx context.Context) ([]Info, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
