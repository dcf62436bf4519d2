package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Tier is one level of the entity cache.
type Tier interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Tiered implements ports.EntityCache over two tiers:
// L1: local in-memory cache (fast, but local to the instance)
// L2: Redis cache (slower, but shared across instances)
// Both tiers receive the same TTL on write so neither outlives the other.
//
// The two tiers are populated by independent round trips and are not
// linearizable with each other or with the authoritative store; readers may
// briefly observe a stale L1 copy after another node's write. Only read-mostly
// entity snapshots are cached here. The balance check reads the ledger
// directly and never goes through this cache.
type Tiered struct {
	l1  Tier
	l2  Tier
	log zerolog.Logger

	l1Hits   int64
	l2Hits   int64
	l2Misses int64

	// ttl remembers the most recent write TTL so L1 repopulation on an
	// L2 hit uses the same configured duration.
	ttl int64
}

// NewTiered creates the two-tier entity cache.
func NewTiered(l1, l2 Tier, log zerolog.Logger) *Tiered {
	return &Tiered{l1: l1, l2: l2, log: log}
}

// Get checks L1, then L2. An L2 hit populates L1 on the way back. A miss in
// both tiers means the caller must load from the authoritative store and Set.
func (c *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, hit, err := c.l1.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("L1 cache error")
	}
	if hit {
		atomic.AddInt64(&c.l1Hits, 1)
		return val, true, nil
	}

	val, hit, err = c.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if hit {
		atomic.AddInt64(&c.l2Hits, 1)
		// An L2 hit carries no TTL back, so the L1 copy gets a fresh
		// full TTL. Bounded staleness, same as the source of the entry.
		if err := c.l1.Set(ctx, key, val, c.lastTTL()); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("failed to populate L1 cache")
		}
		return val, true, nil
	}
	atomic.AddInt64(&c.l2Misses, 1)

	return nil, false, nil
}

// Set writes both tiers with the same TTL.
func (c *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.storeTTL(ttl)
	if err := c.l2.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if err := c.l1.Set(ctx, key, value, ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("failed to set L1 cache")
	}
	return nil
}

// Delete removes the key from both tiers.
func (c *Tiered) Delete(ctx context.Context, key string) error {
	if err := c.l2.Delete(ctx, key); err != nil {
		return err
	}
	if err := c.l1.Delete(ctx, key); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("failed to delete from L1 cache")
	}
	return nil
}

// Stats returns hit/miss counters across the tiers.
func (c *Tiered) Stats() (l1Hits, l2Hits, misses int64) {
	return atomic.LoadInt64(&c.l1Hits), atomic.LoadInt64(&c.l2Hits), atomic.LoadInt64(&c.l2Misses)
}

func (c *Tiered) storeTTL(ttl time.Duration) {
	atomic.StoreInt64(&c.ttl, int64(ttl))
}

func (c *Tiered) lastTTL() time.Duration {
	if v := atomic.LoadInt64(&c.ttl); v > 0 {
		return time.Duration(v)
	}
	return 30 * time.Minute
}
