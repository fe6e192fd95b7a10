// Package cachestore is the router's Cache Client (spec.md §6):
// key/value storage with TTL, used for response memoization and
// per-provider metrics. Values are opaque blobs; the caller owns
// (de)serialization. Any operation may fail; failures are non-fatal
// to the router, which treats them as cache misses and logs them.
package cachestore

import (
	"context"
	"time"
)

// Cache is the narrow surface the router consumes, matching spec.md
// §6's Cache Client operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
