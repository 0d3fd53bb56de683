// Package recache implements a backend-agnostic cache with uniform TTL
// semantics. Entries live in a pluggable Backend (SQLite for durable local
// storage, Redis for a shared remote store, bigcache for ephemeral in-process
// use), but expiration, statistics, invalidation and cleanup are owned by the
// cache manager so every backend behaves identically from the caller's side.
//
// Components:
//   - Backend: byte store holding {value, created_at, expires_at, hits}
//     per key (see the backend package).
//   - Codec[V]: (de)serializes V <-> []byte (CBOR, msgpack, JSON, protobuf).
//   - Cache[V]: the public manager. Expired entries are logically absent on
//     every read path and lazily removed when Get encounters them.
//   - MakeKey / Memoize: deterministic argument-derived keys and
//     get-or-compute wrapping.
//   - Warm: seeds a manager with precomputed entries at startup.
//
// TTL rules:
//
//	Set(ctx, k, v, ttl)  // ttl > 0: expires at now+ttl
//	                     // ttl == 0: Options.DefaultTTL applies (0 = never)
//	                     // ttl < 0: ErrInvalidArgument
//
// Backend failures are surfaced as ErrBackendUnavailable and never reported
// as a miss, so callers can tell "not cached" from "cache unreachable".
package recache
