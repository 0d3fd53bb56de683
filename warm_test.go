package recache

import (
	"context"
	"testing"
	"time"
)

func TestWarmIsAdditiveAndIdempotent(t *testing.T) {
	ctx := context.Background()
	tb := newTestBackend()
	cc := newTestCache(t, tb, nil)
	defer cc.Close(ctx)

	// pre-existing entry outside the seed set must survive warming
	if err := cc.Set(ctx, "other:1", user{ID: "o"}, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	seeds := []Seed[user]{
		{Key: "seed:1", Value: user{ID: "1", Name: "Ada"}, TTL: time.Minute},
		{Key: "seed:2", Value: user{ID: "2", Name: "Grace"}},
	}

	n, err := Warm(ctx, cc, seeds)
	if err != nil || n != 2 {
		t.Fatalf("Warm: n=%d err=%v", n, err)
	}
	if ok, _ := cc.Exists(ctx, "other:1"); !ok {
		t.Fatalf("warming must not clear existing entries")
	}
	if got, ok, _ := cc.Get(ctx, "seed:1"); !ok || got.Name != "Ada" {
		t.Fatalf("seed:1 not warmed: ok=%v got=%v", ok, got)
	}

	// re-running with the same seed set overwrites with identical values
	n, err = Warm(ctx, cc, seeds)
	if err != nil || n != 2 {
		t.Fatalf("Warm rerun: n=%d err=%v", n, err)
	}
	if got, ok, _ := cc.Get(ctx, "seed:2"); !ok || got.Name != "Grace" {
		t.Fatalf("seed:2 after rerun: ok=%v got=%v", ok, got)
	}
}

func TestWarmStopsOnBackendFailure(t *testing.T) {
	ctx := context.Background()
	tb := newTestBackend()
	cc := newTestCache(t, tb, nil)
	defer cc.Close(ctx)

	tb.down = true
	n, err := Warm(ctx, cc, []Seed[user]{{Key: "s", Value: user{}}})
	if err == nil || n != 0 {
		t.Fatalf("Warm on down backend: n=%d err=%v", n, err)
	}
}
