// Package redis implements the recache remote backend on Redis via
// github.com/redis/go-redis/v9.
//
// Each cache key maps to a Redis hash with fields "v" (encoded value), "c"
// (created-at, unix nanos), "x" (expires-at, unix nanos; 0 = none) and "h"
// (access count). The entry's expiry is mirrored into Redis' native TTL so
// the server reclaims dead entries on its own, but the manager still
// re-validates expires_at on read; native TTL granularity or clock skew never
// changes observable behavior.
//
// Scan walks the keyspace with the SCAN cursor and is therefore an
// approximation: keys expired server-side between cursor pages are absent,
// and entries written during the walk may or may not appear. That is the
// bound the service exposes; cleanup, invalidation and statistics inherit it.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	be "github.com/unkn0wn-root/recache/backend"
)

// DefaultQueryTimeout bounds each network operation.
const DefaultQueryTimeout = 5 * time.Second

var ErrNilClient = errors.New("redis backend: nil client")

// touchScript guards the access-count bump so a touch racing native TTL
// expiry cannot recreate a skeleton hash.
var touchScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('HINCRBY', KEYS[1], 'h', 1)
end
return 0`)

// removeIfScript compares the stored expiry before deleting so an eviction
// never drops an entry that was replaced after it was observed.
var removeIfScript = goredis.NewScript(`
if redis.call('HGET', KEYS[1], 'x') == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0`)

type Backend struct {
	rdb         goredis.UniversalClient
	prefix      string
	timeout     time.Duration
	closeClient bool
}

var _ be.Backend = (*Backend)(nil)

type Config struct {
	Client goredis.UniversalClient

	// Prefix namespaces this cache's keys on a shared instance. Scan only
	// walks and returns keys under the prefix.
	Prefix string

	// QueryTimeout bounds each operation; 0 => DefaultQueryTimeout.
	QueryTimeout time.Duration

	// CloseClient: set true only if this backend exclusively owns the client.
	CloseClient bool
}

func New(cfg Config) (*Backend, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	b := &Backend{
		rdb:         cfg.Client,
		prefix:      cfg.Prefix,
		timeout:     cfg.QueryTimeout,
		closeClient: cfg.CloseClient,
	}
	if b.timeout <= 0 {
		b.timeout = DefaultQueryTimeout
	}
	return b, nil
}

func (b *Backend) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, b.timeout)
}

func (b *Backend) storageKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + ":" + key
}

func (b *Backend) userKey(storage string) string {
	if b.prefix == "" {
		return storage
	}
	return strings.TrimPrefix(storage, b.prefix+":")
}

func (b *Backend) Put(ctx context.Context, key string, e be.Entry) error {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	k := b.storageKey(key)
	_, err := b.rdb.Pipelined(qctx, func(p goredis.Pipeliner) error {
		p.HSet(qctx, k,
			"v", e.Value,
			"c", strconv.FormatInt(e.CreatedAt.UnixNano(), 10),
			"x", strconv.FormatInt(expiresNanos(e.ExpiresAt), 10),
			"h", 0,
		)
		if e.ExpiresAt.IsZero() {
			p.Persist(qctx, k)
		} else {
			p.PExpireAt(qctx, k, e.ExpiresAt)
		}
		return nil
	})
	if err != nil {
		return wrap("put", err)
	}
	return nil
}

func (b *Backend) Fetch(ctx context.Context, key string) (be.Entry, bool, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	vals, err := b.rdb.HMGet(qctx, b.storageKey(key), "v", "c", "x").Result()
	if err != nil {
		return be.Entry{}, false, wrap("fetch", err)
	}
	if len(vals) != 3 || vals[0] == nil {
		return be.Entry{}, false, nil
	}

	value, err := fieldBytes(vals[0])
	if err != nil {
		return be.Entry{}, false, wrap("fetch", err)
	}
	created, err := fieldInt(vals[1])
	if err != nil {
		return be.Entry{}, false, wrap("fetch", err)
	}
	expires, err := fieldInt(vals[2])
	if err != nil {
		return be.Entry{}, false, wrap("fetch", err)
	}

	return be.Entry{
		Value:     value,
		CreatedAt: time.Unix(0, created),
		ExpiresAt: expiresTime(expires),
	}, true, nil
}

func (b *Backend) Touch(ctx context.Context, key string) error {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	if err := touchScript.Run(qctx, b.rdb, []string{b.storageKey(key)}).Err(); err != nil {
		return wrap("touch", err)
	}
	return nil
}

func (b *Backend) Hits(ctx context.Context, key string) (int64, bool, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	n, err := b.rdb.HGet(qctx, b.storageKey(key), "h").Int64()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrap("hits", err)
	}
	return n, true, nil
}

func (b *Backend) Remove(ctx context.Context, key string) (bool, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	n, err := b.rdb.Del(qctx, b.storageKey(key)).Result()
	if err != nil {
		return false, wrap("remove", err)
	}
	return n > 0, nil
}

func (b *Backend) RemoveIf(ctx context.Context, key string, expiresAt time.Time) (bool, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	n, err := removeIfScript.Run(qctx, b.rdb,
		[]string{b.storageKey(key)},
		strconv.FormatInt(expiresNanos(expiresAt), 10),
	).Int64()
	if err != nil {
		return false, wrap("remove", err)
	}
	return n > 0, nil
}

func (b *Backend) Scan(ctx context.Context) ([]be.Info, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	match := "*"
	if b.prefix != "" {
		match = b.prefix + ":*"
	}

	var infos []be.Info
	var cursor uint64
	for {
		keys, next, err := b.rdb.Scan(qctx, cursor, match, 256).Result()
		if err != nil {
			return nil, wrap("scan", err)
		}

		if len(keys) > 0 {
			xs := make([]*goredis.StringCmd, len(keys))
			sizes := make([]*goredis.Cmd, len(keys))
			_, err := b.rdb.Pipelined(qctx, func(p goredis.Pipeliner) error {
				for i, k := range keys {
					xs[i] = p.HGet(qctx, k, "x")
					// go-redis has no HSTRLEN helper; issue it generically
					sizes[i] = p.Do(qctx, "hstrlen", k, "v")
				}
				return nil
			})
			if err != nil && err != goredis.Nil {
				return nil, wrap("scan", err)
			}
			for i, k := range keys {
				x, err := xs[i].Int64()
				if err == goredis.Nil {
					// vanished between SCAN page and HGET, or a foreign key
					continue
				}
				if err != nil {
					return nil, wrap("scan", err)
				}
				size, err := sizes[i].Int64()
				if err != nil && err != goredis.Nil {
					return nil, wrap("scan", err)
				}
				infos = append(infos, be.Info{
					Key:       b.userKey(k),
					ExpiresAt: expiresTime(x),
					Size:      size,
				})
			}
		}

		cursor = next
		if cursor == 0 {
			return infos, nil
		}
	}
}

// Close releases the underlying client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (b *Backend) Close(context.Context) error {
	if b.closeClient {
		if err := b.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

func wrap(op string, err error) error {
	return fmt.Errorf("redis %s: %w: %v", op, be.ErrUnavailable, err)
}

func fieldBytes(v any) ([]byte, error) {
	switch vv := v.(type) {
	case string:
		return []byte(vv), nil
	case []byte:
		return vv, nil
	default:
		return nil, fmt.Errorf("unexpected field type %T", v)
	}
}

func fieldInt(v any) (int64, error) {
	switch vv := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(vv, 10, 64)
	case []byte:
		return strconv.ParseInt(string(vv), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected field type %T", v)
	}
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
