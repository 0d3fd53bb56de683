package recache

import (
	"context"
	"time"
)

// Seed is one precomputed entry for cache warming.
type Seed[V any] struct {
	Key   string
	Value V
	TTL   time.Duration // 0 => the manager's DefaultTTL
}

// Warm populates c with the given seeds at startup. Purely additive: existing
// entries outside the seed set are untouched, and re-running with the same
// seeds overwrites them with identical values. Returns the number of seeds
// stored; on error, seeds before the failing one are already in place.
func Warm[V any](ctx context.Context, c Cache[V], seeds []Seed[V]) (int, error) {
	for i, s := range seeds {
		if err := c.Set(ctx, s.Key, s.Value, s.TTL); err != nil {
			return i, err
		}
	}
	return len(seeds), nil
}
