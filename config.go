package recache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	be "github.com/unkn0wn-root/recache/backend"
	"github.com/unkn0wn-root/recache/backend/memory"
	redisbe "github.com/unkn0wn-root/recache/backend/redis"
	sqlitebe "github.com/unkn0wn-root/recache/backend/sqlite"
	c "github.com/unkn0wn-root/recache/codec"
)

// Recognized backend names for Config.Backend.
const (
	BackendLocal  = "local"  // SQLite, durable across restarts
	BackendRemote = "remote" // Redis
	BackendMemory = "memory" // bigcache, ephemeral
)

// Config selects and parameterizes a backend from configuration data.
//
//	backend: local | remote | memory
//	ttl_default: "10m"              # str2duration format, e.g. "90s", "1h30m"
//	storage_path: /var/cache/app.db # local backend database file
//	remote_address: localhost:6379  # remote backend endpoint
//	namespace: myapp                # remote backend key prefix
type Config struct {
	Backend       string `yaml:"backend"`
	TTLDefault    string `yaml:"ttl_default"`
	StoragePath   string `yaml:"storage_path"`
	RemoteAddress string `yaml:"remote_address"`
	Namespace     string `yaml:"namespace"`
}

// ParseConfig decodes a YAML document into a Config.
func ParseConfig(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("recache: parse config: %w", err)
	}
	return cfg, nil
}

// DefaultTTL parses ttl_default; empty means no default expiration.
func (cfg Config) DefaultTTL() (time.Duration, error) {
	if cfg.TTLDefault == "" {
		return 0, nil
	}
	d, err := str2duration.ParseDuration(cfg.TTLDefault)
	if err != nil {
		return 0, fmt.Errorf("%w: ttl_default %q: %v", ErrInvalidArgument, cfg.TTLDefault, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: negative ttl_default %q", ErrInvalidArgument, cfg.TTLDefault)
	}
	return d, nil
}

// OpenBackend constructs the backend Config selects. The remote backend owns
// the client it builds from remote_address and closes it with the cache.
func (cfg Config) OpenBackend(ctx context.Context) (be.Backend, error) {
	switch cfg.Backend {
	case BackendLocal, "":
		return sqlitebe.New(ctx, sqlitebe.Config{Path: cfg.StoragePath})
	case BackendRemote:
		if cfg.RemoteAddress == "" {
			return nil, fmt.Errorf("%w: remote backend requires remote_address", ErrInvalidArgument)
		}
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RemoteAddress})
		return redisbe.New(redisbe.Config{
			Client:      client,
			Prefix:      cfg.Namespace,
			CloseClient: true,
		})
	case BackendMemory:
		return memory.New(memory.Config{})
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidArgument, cfg.Backend)
	}
}

// Open builds a ready-to-use cache manager from cfg and a codec.
func Open[V any](ctx context.Context, cfg Config, cod c.Codec[V]) (Cache[V], error) {
	ttl, err := cfg.DefaultTTL()
	if err != nil {
		return nil, err
	}
	store, err := cfg.OpenBackend(ctx)
	if err != nil {
		return nil, err
	}
	cache, err := New[V](Options[V]{Backend: store, Codec: cod, DefaultTTL: ttl})
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return cache, nil
}
