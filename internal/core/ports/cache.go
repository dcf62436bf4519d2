package ports

import (
	"context"
	"time"
)

//go:generate mockgen -source=cache.go -destination=mocks/cache.go -package=mocks

// EntityCache is the read-side cache for entity snapshots. Entries are soft
// state: a miss never implies the underlying record is absent, only that the
// caller must fall through to the authoritative store.
type EntityCache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value; tiered implementations apply the same TTL to
	// every tier so no tier outlives another.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key from every tier.
	Delete(ctx context.Context, key string) error
}
