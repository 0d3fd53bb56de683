package recache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	be "github.com/unkn0wn-root/recache/backend"
	c "github.com/unkn0wn-root/recache/codec"
)

type manager[V any] struct {
	store      be.Backend
	codec      c.Codec[V]
	log        Logger
	hooks      Hooks
	defaultTTL time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	sweepInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

func newManager[V any](opts Options[V]) (*manager[V], error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("recache: backend is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("recache: codec is required")
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("%w: negative default ttl", ErrInvalidArgument)
	}

	m := &manager[V]{
		store:      opts.Backend,
		codec:      opts.Codec,
		defaultTTL: opts.DefaultTTL,
	}
	m.log = coalesce[Logger](opts.Logger, NopLogger{})
	m.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	if opts.CleanupInterval > 0 {
		m.sweepInterval = opts.CleanupInterval
		m.stopCh = make(chan struct{})
		m.wg.Add(1)
		go m.sweep()
	}
	return m, nil
}

func (m *manager[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}
	if ttl < 0 {
		return fmt.Errorf("%w: negative ttl %s", ErrInvalidArgument, ttl)
	}
	if ttl == 0 {
		ttl = m.defaultTTL
	}

	payload, err := m.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("%w: key %q: %v", ErrEncoding, key, err)
	}

	now := time.Now()
	e := be.Entry{Value: payload, CreatedAt: now}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	if err := m.store.Put(ctx, key, e); err != nil {
		m.hooks.BackendError("put", err)
		return err
	}
	m.log.Debug("set", Fields{"key": key, "ttl": ttl.String(), "bytes": len(payload)})
	return nil
}

func (m *manager[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	e, ok, err := m.store.Fetch(ctx, key)
	if err != nil {
		m.hooks.BackendError("fetch", err)
		return zero, false, err
	}
	if !ok {
		m.misses.Add(1)
		return zero, false, nil
	}
	if expired(e.ExpiresAt, time.Now()) {
		// lazy eviction: an expired entry is logically absent; remove the
		// physical record as a side effect of the read. The removal is
		// guarded on the observed expiry so a Set racing the eviction is
		// never lost.
		if _, derr := m.store.RemoveIf(ctx, key, e.ExpiresAt); derr != nil {
			m.log.Warn("lazy eviction failed", Fields{"key": key, "err": derr})
		}
		m.hooks.ExpiredOnRead(key)
		m.misses.Add(1)
		return zero, false, nil
	}

	v, err := m.codec.Decode(e.Value)
	if err != nil {
		// self-heal: drop the undecodable record and miss
		_, _ = m.store.RemoveIf(ctx, key, e.ExpiresAt)
		m.log.Warn("dropped undecodable entry", Fields{"key": key, "err": err})
		m.misses.Add(1)
		return zero, false, nil
	}

	if terr := m.store.Touch(ctx, key); terr != nil {
		m.log.Debug("touch failed", Fields{"key": key, "err": terr})
	}
	m.hits.Add(1)
	return v, true, nil
}

func (m *manager[V]) Exists(ctx context.Context, key string) (bool, error) {
	e, ok, err := m.store.Fetch(ctx, key)
	if err != nil {
		m.hooks.BackendError("fetch", err)
		return false, err
	}
	return ok && !expired(e.ExpiresAt, time.Now()), nil
}

func (m *manager[V]) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := m.store.Remove(ctx, key)
	if err != nil {
		m.hooks.BackendError("remove", err)
		return false, err
	}
	return removed, nil
}

func (m *manager[V]) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	e, ok, err := m.store.Fetch(ctx, key)
	if err != nil {
		m.hooks.BackendError("fetch", err)
		return 0, false, err
	}
	if !ok || e.ExpiresAt.IsZero() {
		return 0, false, nil
	}
	rem := time.Until(e.ExpiresAt)
	if rem <= 0 {
		return 0, false, nil
	}
	return rem, true, nil
}

func (m *manager[V]) Hits(ctx context.Context, key string) (int64, bool, error) {
	n, ok, err := m.store.Hits(ctx, key)
	if err != nil {
		m.hooks.BackendError("hits", err)
		return 0, false, err
	}
	return n, ok, nil
}

func (m *manager[V]) Stats(ctx context.Context) (Stats, error) {
	infos, err := m.store.Scan(ctx)
	if err != nil {
		m.hooks.BackendError("scan", err)
		return Stats{}, err
	}

	now := time.Now()
	var entries, size int64
	for _, in := range infos {
		if expired(in.ExpiresAt, now) {
			continue
		}
		entries++
		size += in.Size
	}

	s := Stats{
		Entries:   entries,
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		SizeBytes: size,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s, nil
}

func (m *manager[V]) CleanupExpired(ctx context.Context) (int, error) {
	infos, err := m.store.Scan(ctx)
	if err != nil {
		m.hooks.BackendError("scan", err)
		return 0, err
	}

	now := time.Now()
	removed := 0
	for _, in := range infos {
		if !expired(in.ExpiresAt, now) {
			continue
		}
		// guarded on the scanned expiry: only the entry the scan observed
		// is removed, a concurrent cleanup is not double-counted and a
		// replacement written since the scan survives
		ok, err := m.store.RemoveIf(ctx, in.Key, in.ExpiresAt)
		if err != nil {
			m.hooks.BackendError("remove", err)
			return removed, err
		}
		if ok {
			removed++
		}
	}
	if removed > 0 {
		m.hooks.SweepRemoved(removed)
		m.log.Debug("cleanup removed expired entries", Fields{"count": removed})
	}
	return removed, nil
}

// Invalidate removes entries by literal key-prefix match; "" removes all.
// Hit/miss counters persist across invalidation.
func (m *manager[V]) Invalidate(ctx context.Context, prefix string) (int, error) {
	infos, err := m.store.Scan(ctx)
	if err != nil {
		m.hooks.BackendError("scan", err)
		return 0, err
	}

	removed := 0
	for _, in := range infos {
		if prefix != "" && !strings.HasPrefix(in.Key, prefix) {
			continue
		}
		// removes exactly the entry the scan observed; an entry rewritten
		// since then survives
		ok, err := m.store.RemoveIf(ctx, in.Key, in.ExpiresAt)
		if err != nil {
			m.hooks.BackendError("remove", err)
			return removed, err
		}
		if ok {
			removed++
		}
	}
	m.log.Debug("invalidated", Fields{"prefix": prefix, "count": removed})
	return removed, nil
}

func (m *manager[V]) Close(ctx context.Context) error {
	var err error
	m.closeOnce.Do(func() {
		if m.stopCh != nil {
			close(m.stopCh)
			m.wg.Wait()
		}
		err = m.store.Close(ctx)
	})
	return err
}

func (m *manager[V]) sweep() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			if _, err := m.CleanupExpired(context.Background()); err != nil {
				m.log.Warn("background cleanup failed", Fields{"err": err})
			}
		}
	}
}

// expired reports whether exp is a real deadline that has passed.
// A zero exp means "no expiration".
func expired(exp time.Time, now time.Time) bool {
	return !exp.IsZero() && !exp.After(now)
}
