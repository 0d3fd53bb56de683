package recache

import (
	"context"
	"time"

	be "github.com/unkn0wn-root/recache/backend"
	c "github.com/unkn0wn-root/recache/codec"
)

// Cache is the public manager API. V is the caller's value type;
// serialization is handled by a pluggable Codec[V].
//
// All methods are safe for concurrent use. Per-key operations are
// linearizable; cross-key operations (Stats, CleanupExpired, Invalidate)
// observe a consistent-enough snapshot and never corrupt counters.
type Cache[V any] interface {
	// Set stores value under key, fully replacing any previous entry
	// (value, expiry and access count reset). See package doc for TTL rules.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error

	// Get returns the live value for key. Expired entries are treated as
	// absent and lazily removed from the backend. Hit/miss counters are
	// updated; backend failures are returned, never counted as a miss.
	Get(ctx context.Context, key string) (v V, ok bool, err error)

	// Exists reports whether a live entry is present. Does not touch the
	// hit/miss counters or the entry's access count.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the entry if present and reports whether it did.
	Delete(ctx context.Context, key string) (bool, error)

	// TTL returns the remaining time until expiration. ok is false when the
	// key is absent, already expired, or has no expiration.
	TTL(ctx context.Context, key string) (d time.Duration, ok bool, err error)

	// Hits returns how many times the entry has been read since it was set.
	Hits(ctx context.Context, key string) (n int64, ok bool, err error)

	// Stats returns a snapshot over currently-live entries plus the
	// cumulative hit/miss counters for this manager instance.
	Stats(ctx context.Context) (Stats, error)

	// CleanupExpired physically removes every expired entry and returns the
	// count removed. Safe to call concurrently with other operations.
	CleanupExpired(ctx context.Context) (int, error)

	// Invalidate removes every entry whose key starts with prefix; an empty
	// prefix removes all entries. Returns the count removed. Cumulative
	// hit/miss counters are not reset.
	Invalidate(ctx context.Context, prefix string) (int, error)

	// Close stops the background sweeper (if any) and closes the backend.
	Close(ctx context.Context) error
}

// Options tune a cache manager. Backend and Codec are required; the rest
// have sensible defaults.
type Options[V any] struct {
	// Required
	Backend be.Backend
	Codec   c.Codec[V]

	Logger          Logger        // nil => NopLogger
	Hooks           Hooks         // nil => NopHooks
	DefaultTTL      time.Duration // applied when Set gets ttl == 0; 0 => no expiration
	CleanupInterval time.Duration // background expired-entry sweep; 0 disables
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newManager[V](opts)
}
