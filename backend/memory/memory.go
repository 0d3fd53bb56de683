// Package memory implements an ephemeral recache backend on
// github.com/allegro/bigcache/v3. Entries are framed with internal/wire so
// bigcache's opaque values carry the metadata the manager needs. bigcache
// only supports a global life window, not per-entry TTL; the configured
// LifeWindow therefore acts as an upper bound on entry lifetime while exact
// per-entry expiry is enforced by the manager's lazy expiration.
//
// Not durable: contents are lost on process restart.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	be "github.com/unkn0wn-root/recache/backend"
	"github.com/unkn0wn-root/recache/internal/wire"
)

type Backend struct {
	c *bc.BigCache

	// mu serializes writes against the read-modify-write cycles (touch,
	// guarded remove) so increments are not lost and a compare-and-delete
	// cannot race a concurrent Put.
	mu sync.Mutex
}

var _ be.Backend = (*Backend)(nil)

type Config struct {
	LifeWindow         time.Duration // upper bound on entry lifetime; 0 => 12h
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Backend, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 12 * time.Hour
	}
	conf := bc.DefaultConfig(life)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Backend{c: c}, nil
}

func (b *Backend) Put(_ context.Context, key string, e be.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := wire.Record{
		CreatedAt: e.CreatedAt.UnixNano(),
		ExpiresAt: expiresNanos(e.ExpiresAt),
		Payload:   e.Value,
	}
	if err := b.c.Set(key, wire.Encode(rec)); err != nil {
		return wrap("put", err)
	}
	return nil
}

func (b *Backend) Fetch(_ context.Context, key string) (be.Entry, bool, error) {
	raw, err := b.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return be.Entry{}, false, nil
	}
	if err != nil {
		return be.Entry{}, false, wrap("fetch", err)
	}
	rec, err := wire.Decode(raw)
	if err != nil {
		_ = b.c.Delete(key) // self-heal corrupt
		return be.Entry{}, false, nil
	}
	return be.Entry{
		Value:     rec.Payload,
		CreatedAt: time.Unix(0, rec.CreatedAt),
		ExpiresAt: expiresTime(rec.ExpiresAt),
	}, true, nil
}

func (b *Backend) Touch(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	raw, err := b.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	if err != nil {
		return wrap("touch", err)
	}
	rec, err := wire.Decode(raw)
	if err != nil {
		return nil
	}
	rec.Hits++
	if err := b.c.Set(key, wire.Encode(rec)); err != nil {
		return wrap("touch", err)
	}
	return nil
}

func (b *Backend) Hits(_ context.Context, key string) (int64, bool, error) {
	raw, err := b.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrap("hits", err)
	}
	rec, err := wire.Decode(raw)
	if err != nil {
		return 0, false, nil
	}
	return int64(rec.Hits), true, nil
}

func (b *Backend) Remove(_ context.Context, key string) (bool, error) {
	err := b.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrap("remove", err)
	}
	return true, nil
}

func (b *Backend) RemoveIf(_ context.Context, key string, expiresAt time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	raw, err := b.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrap("remove", err)
	}
	rec, err := wire.Decode(raw)
	if err != nil || rec.ExpiresAt != expiresNanos(expiresAt) {
		return false, nil
	}
	if err := b.c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return false, wrap("remove", err)
	}
	return true, nil
}

func (b *Backend) Scan(_ context.Context) ([]be.Info, error) {
	var infos []be.Info
	it := b.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			continue
		}
		rec, err := wire.Decode(e.Value())
		if err != nil {
			continue
		}
		infos = append(infos, be.Info{
			Key:       e.Key(),
			ExpiresAt: expiresTime(rec.ExpiresAt),
			Size:      int64(len(rec.Payload)),
		})
	}
	return infos, nil
}

func (b *Backend) Close(context.Context) error {
	return b.c.Close()
}

func wrap(op string, err error) error {
	return fmt.Errorf("memory %s: %w: %v", op, be.ErrUnavailable, err)
}

func expiresNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func expiresTime(nanos int64) time.Time {
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}
