package memory

import (
	"bytes"
	"context"
	"testing"
	"time"

	be "github.com/unkn0wn-root/recache/backend"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(Config{LifeWindow: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestPutFetchCarriesMetadata(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	defer b.Close(ctx)

	now := time.Now()
	e := be.Entry{Value: []byte("payload"), CreatedAt: now, ExpiresAt: now.Add(time.Minute)}
	if err := b.Put(ctx, "k", e); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := b.Fetch(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Fetch: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got.Value, e.Value) {
		t.Fatalf("value mismatch: got %q", got.Value)
	}
	if got.ExpiresAt.UnixNano() != e.ExpiresAt.UnixNano() {
		t.Fatalf("expiry mismatch: got %v want %v", got.ExpiresAt, e.ExpiresAt)
	}

	if _, ok, err := b.Fetch(ctx, "absent"); err != nil || ok {
		t.Fatalf("Fetch absent: ok=%v err=%v", ok, err)
	}
}

func TestTouchCountsAndRemove(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	defer b.Close(ctx)

	if err := b.Put(ctx, "k", be.Entry{Value: []byte("v"), CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := b.Touch(ctx, "k"); err != nil {
			t.Fatalf("Touch: %v", err)
		}
	}
	if n, ok, err := b.Hits(ctx, "k"); err != nil || !ok || n != 2 {
		t.Fatalf("Hits: n=%d ok=%v err=%v want 2", n, ok, err)
	}

	removed, err := b.Remove(ctx, "k")
	if err != nil || !removed {
		t.Fatalf("Remove: removed=%v err=%v", removed, err)
	}
	removed, err = b.Remove(ctx, "k")
	if err != nil || removed {
		t.Fatalf("Remove absent: removed=%v err=%v want false", removed, err)
	}
}

func TestRemoveIfGuardsOnExpiry(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	defer b.Close(ctx)

	now := time.Now()
	stale := now.Add(-time.Minute)
	if err := b.Put(ctx, "k", be.Entry{Value: []byte("old"), CreatedAt: stale, ExpiresAt: stale}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	exp := now.Add(time.Hour)
	if err := b.Put(ctx, "k", be.Entry{Value: []byte("new"), CreatedAt: now, ExpiresAt: exp}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	removed, err := b.RemoveIf(ctx, "k", stale)
	if err != nil || removed {
		t.Fatalf("RemoveIf stale expiry: removed=%v err=%v want false", removed, err)
	}
	if _, ok, _ := b.Fetch(ctx, "k"); !ok {
		t.Fatalf("replacement must survive guarded remove")
	}

	removed, err = b.RemoveIf(ctx, "k", exp)
	if err != nil || !removed {
		t.Fatalf("RemoveIf matching expiry: removed=%v err=%v want true", removed, err)
	}
	if removed, err := b.RemoveIf(ctx, "absent", time.Time{}); err != nil || removed {
		t.Fatalf("RemoveIf absent: removed=%v err=%v want false", removed, err)
	}
}

func TestScanDecodesEnvelopes(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	defer b.Close(ctx)

	now := time.Now()
	if err := b.Put(ctx, "a", be.Entry{Value: []byte("xx"), CreatedAt: now, ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := b.Put(ctx, "b", be.Entry{Value: []byte("yyy"), CreatedAt: now}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	infos, err := b.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("Scan returned %d infos, want 2", len(infos))
	}
	byKey := make(map[string]be.Info, len(infos))
	for _, in := range infos {
		byKey[in.Key] = in
	}
	if in := byKey["a"]; in.Size != 2 || in.ExpiresAt.IsZero() {
		t.Fatalf("info a: %+v", in)
	}
	if in := byKey["b"]; in.Size != 3 || !in.ExpiresAt.IsZero() {
		t.Fatalf("info b: %+v", in)
	}
}
