package application

import (
	"context"
	"sync"
	"time"

	"github.com/pixzlo/pixzlo-bridge/internal/ports"
	"github.com/pixzlo/pixzlo-bridge/internal/telemetry"
)

const DefaultMetadataTTL = 5 * time.Minute

// MetadataCache holds a single entry. Storing under a new key replaces
// whatever was there; reading with a different key is a miss.
type MetadataCache[K comparable, V any] struct {
	name  string
	ttl   time.Duration
	clock ports.Clock

	mu    sync.Mutex
	entry *cacheEntry[K, V]
}

type cacheEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

func NewMetadataCache[K comparable, V any](name string, ttl time.Duration, clock ports.Clock) *MetadataCache[K, V] {
	if ttl <= 0 {
		ttl = DefaultMetadataTTL
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &MetadataCache[K, V]{name: name, ttl: ttl, clock: clock}
}

// Get returns the entry for key and its expiry. An expired entry is dropped
// before the lookup is reported.
func (c *MetadataCache[K, V]) Get(ctx context.Context, key K) (V, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	if c.entry == nil || c.entry.key != key {
		telemetry.RecordCacheLookup(ctx, c.name, telemetry.CacheMiss)
		return zero, time.Time{}, false
	}
	if !c.clock.Now().Before(c.entry.expiresAt) {
		c.entry = nil
		telemetry.RecordCacheLookup(ctx, c.name, telemetry.CacheExpired)
		return zero, time.Time{}, false
	}

	telemetry.RecordCacheLookup(ctx, c.name, telemetry.CacheHit)
	return c.entry.value, c.entry.expiresAt, true
}

// Set stores value as the only entry and returns its expiry.
func (c *MetadataCache[K, V]) Set(key K, value V) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().Add(c.ttl)
	c.entry = &cacheEntry[K, V]{key: key, value: value, expiresAt: expiresAt}
	return expiresAt
}

// Peek reports the current key and expiry without touching metrics or
// evicting anything.
func (c *MetadataCache[K, V]) Peek() (K, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero K
	if c.entry == nil {
		return zero, time.Time{}, false
	}
	return c.entry.key, c.entry.expiresAt, true
}

func (c *MetadataCache[K, V]) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}
