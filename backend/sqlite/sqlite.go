// Package sqlite implements the recache local backend on a SQLite database
// via modernc.org/sqlite (pure Go, no CGO). One row per key holds
// {key, value, created_at, expires_at, hits}; a file-backed database is
// durable across process restarts. WAL mode keeps concurrent readers off the
// writer's back, and every operation runs under a per-query timeout so slow
// storage cannot hang the caller.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	be "github.com/unkn0wn-root/recache/backend"
)

// DefaultQueryTimeout bounds each database operation.
const DefaultQueryTimeout = 5 * time.Second

type Backend struct {
	db      *sql.DB
	timeout time.Duration
}

var _ be.Backend = (*Backend)(nil)

type Config struct {
	// Path of the database file. Empty or ":memory:" selects an in-memory
	// database (not durable).
	Path string

	// QueryTimeout bounds each operation; 0 => DefaultQueryTimeout.
	QueryTimeout time.Duration
}

func New(ctx context.Context, cfg Config) (*Backend, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrap("open", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, wrap("pragma", err)
	}

	// expires_at/created_at are unix nanos; expires_at = 0 means no expiry.
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0,
		hits INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		db.Close()
		return nil, wrap("create table", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache(expires_at)`); err != nil {
		db.Close()
		return nil, wrap("create index", err)
	}

	b := &Backend{db: db, timeout: cfg.QueryTimeout}
	if b.timeout <= 0 {
		b.timeout = DefaultQueryTimeout
	}
	return b, nil
}

func (b *Backend) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, b.timeout)
}

func (b *Backend) Put(ctx context.Context, key string, e be.Entry) error {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	_, err := b.db.ExecContext(qctx,
		`INSERT INTO cache (key, value, created_at, expires_at, hits) VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			hits = 0`,
		key, e.Value, e.CreatedAt.UnixNano(), expiresNanos(e.ExpiresAt),
	)
	if err != nil {
		return wrap("put", err)
	}
	return nil
}

func (b *Backend) Fetch(ctx context.Context, key string) (be.Entry, bool, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	var value []byte
	var created, expires int64
	err := b.db.QueryRowContext(qctx,
		`SELECT value, created_at, expires_at FROM cache WHERE key = ?`, key,
	).Scan(&value, &created, &expires)
	if err == sql.ErrNoRows {
		return be.Entry{}, false, nil
	}
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

	if _, err := b.db.ExecContext(qctx, `UPDATE cache SET hits = hits + 1 WHERE key = ?`, key); err != nil {
		return wrap("touch", err)
	}
	return nil
}

func (b *Backend) Hits(ctx context.Context, key string) (int64, bool, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	var hits int64
	err := b.db.QueryRowContext(qctx, `SELECT hits FROM cache WHERE key = ?`, key).Scan(&hits)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrap("hits", err)
	}
	return hits, true, nil
}

func (b *Backend) Remove(ctx context.Context, key string) (bool, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	res, err := b.db.ExecContext(qctx, `DELETE FROM cache WHERE key = ?`, key)
	if err != nil {
		return false, wrap("remove", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, wrap("remove", err)
	}
	return rows > 0, nil
}

func (b *Backend) RemoveIf(ctx context.Context, key string, expiresAt time.Time) (bool, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	res, err := b.db.ExecContext(qctx,
		`DELETE FROM cache WHERE key = ? AND expires_at = ?`,
		key, expiresNanos(expiresAt),
	)
	if err != nil {
		return false, wrap("remove", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, wrap("remove", err)
	}
	return rows > 0, nil
}

func (b *Backend) Scan(ctx context.Context) ([]be.Info, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	rows, err := b.db.QueryContext(qctx, `SELECT key, expires_at, length(value) FROM cache`)
	if err != nil {
		return nil, wrap("scan", err)
	}
	defer rows.Close()

	var infos []be.Info
	for rows.Next() {
		var key string
		var expires, size int64
		if err := rows.Scan(&key, &expires, &size); err != nil {
			return nil, wrap("scan", err)
		}
		infos = append(infos, be.Info{Key: key, ExpiresAt: expiresTime(expires), Size: size})
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("scan", err)
	}
	return infos, nil
}

func (b *Backend) Close(context.Context) error {
	return b.db.Close()
}

func wrap(op string, err error) error {
	return fmt.Errorf("sqlite %s: %w: %v", op, be.ErrUnavailable, err)
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
