package recache

import (
	"context"
	"errors"
	"testing"
	"time"

	c "github.com/unkn0wn-root/recache/codec"
)

func TestParseConfig(t *testing.T) {
	doc := []byte(`
backend: remote
ttl_default: 1h30m
remote_address: localhost:6379
namespace: myapp
`)
	cfg, err := ParseConfig(doc)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Backend != BackendRemote || cfg.RemoteAddress != "localhost:6379" || cfg.Namespace != "myapp" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	d, err := cfg.DefaultTTL()
	if err != nil || d != 90*time.Minute {
		t.Fatalf("DefaultTTL: d=%v err=%v", d, err)
	}
}

func TestConfigTTLDefaults(t *testing.T) {
	d, err := (Config{}).DefaultTTL()
	if err != nil || d != 0 {
		t.Fatalf("empty ttl_default: d=%v err=%v", d, err)
	}
	if _, err := (Config{TTLDefault: "not-a-duration"}).DefaultTTL(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad ttl_default: got %v", err)
	}
}

func TestOpenBackendRejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := (Config{Backend: "tape"}).OpenBackend(ctx); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("unknown backend: got %v", err)
	}
	if _, err := (Config{Backend: BackendRemote}).OpenBackend(ctx); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("remote without address: got %v", err)
	}
}

func TestOpenMemoryBackendEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Backend: BackendMemory, TTLDefault: "5m"}

	cc, err := Open[user](ctx, cfg, c.JSON[user]{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cc.Close(ctx)

	v := user{ID: "1", Name: "Ada"}
	if err := cc.Set(ctx, "u:1", v, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := cc.Get(ctx, "u:1")
	if err != nil || !ok || got != v {
		t.Fatalf("Get: ok=%v err=%v got=%v", ok, err, got)
	}
	if n, ok, _ := cc.Hits(ctx, "u:1"); !ok || n != 1 {
		t.Fatalf("Hits=%d ok=%v want 1", n, ok)
	}
}
