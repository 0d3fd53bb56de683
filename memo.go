package recache

import (
	"context"
	"time"
)

// Do is a cache-aside helper: it returns the live cached value for key, or
// invokes compute and stores the result with the given ttl.
//
// Backend read errors are returned without calling compute, so callers can
// distinguish "not cached" from "cache unreachable". A failed compute is
// propagated unchanged and never cached. A failed store after a successful
// compute is swallowed: the caller already has the value, and the only cost
// is a future recompute.
func Do[V any](ctx context.Context, c Cache[V], key string, ttl time.Duration, compute func(context.Context) (V, error)) (V, error) {
	v, ok, err := c.Get(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}
	if ok {
		return v, nil
	}

	v, err = compute(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	_ = c.Set(ctx, key, v, ttl)
	return v, nil
}

// Memoize wraps fn with get-or-compute-and-store semantics. The cache key is
// derived from name (the wrapped computation's identity) plus the call
// arguments via MakeKey, so fn is invoked at most once per distinct argument
// set until the entry expires. On a hit fn is not called and its side effects
// are not repeated.
func Memoize[V any](c Cache[V], name string, ttl time.Duration, fn func(context.Context, ...any) (V, error)) func(context.Context, ...any) (V, error) {
	return func(ctx context.Context, args ...any) (V, error) {
		h, err := MakeKey(args...)
		if err != nil {
			var zero V
			return zero, err
		}
		key := "memo:" + name + ":" + h
		return Do(ctx, c, key, ttl, func(ctx context.Context) (V, error) {
			return fn(ctx, args...)
		})
	}
}
