package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultCleanupInterval = 30 * time.Second

// Memory is the in-process tier of the entity cache: fast, node-local and
// short-lived. Expired entries are dropped lazily on read and swept by a
// background janitor.
type Memory struct {
	entries sync.Map // map[string]*memoryEntry
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired() bool {
	return time.Now().After(e.expiresAt)
}

// NewMemory creates the in-process cache tier and starts its janitor.
func NewMemory() *Memory {
	c := &Memory{stopCh: make(chan struct{})}
	go c.cleanupExpired()
	return c
}

// Get returns the cached value and whether it was present and fresh.
func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*memoryEntry)
		if !entry.expired() {
			atomic.AddInt64(&c.hits, 1)
			return entry.value, true, nil
		}
		c.entries.Delete(key)
	}
	atomic.AddInt64(&c.misses, 1)
	return nil, false, nil
}

// Set stores a value with TTL.
func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.entries.Store(key, &memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Delete removes a key.
func (c *Memory) Delete(_ context.Context, key string) error {
	c.entries.Delete(key)
	return nil
}

// Stats returns hit/miss counters.
func (c *Memory) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Close stops the janitor. Safe to call more than once.
func (c *Memory) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

func (c *Memory) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.entries.Range(func(key, value any) bool {
				if value.(*memoryEntry).expired() {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}
