package recache

import (
	"errors"

	be "github.com/unkn0wn-root/recache/backend"
)

var (
	// ErrEncoding marks a value the configured codec could not serialize.
	// Fatal to the Set call; never retried by the cache.
	ErrEncoding = errors.New("recache: value not encodable")

	// ErrInvalidArgument marks input rejected before touching storage,
	// e.g. an empty key or a negative TTL.
	ErrInvalidArgument = errors.New("recache: invalid argument")

	// ErrBackendUnavailable wraps storage transport/IO failures. The cache
	// surfaces these unchanged rather than reporting a miss.
	ErrBackendUnavailable = be.ErrUnavailable
)
