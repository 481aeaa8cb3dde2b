package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/ports"
	"github.com/pixzlo/pixzlo-bridge/internal/telemetry"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultProfileTTL = 15 * time.Second
	profileFlightKey  = "profile"
	profileCacheName  = "profile"
)

// ProfileCache memoizes the user profile for a short TTL and collapses
// concurrent fetches into one request. Failures are reported as absent.
type ProfileCache struct {
	source ports.ProfileSource
	clock  ports.Clock
	ttl    time.Duration
	logger *slog.Logger

	group singleflight.Group

	mu        sync.Mutex
	profile   domain.Profile
	expiresAt time.Time
	present   bool
}

func NewProfileCache(source ports.ProfileSource, clock ports.Clock, ttl time.Duration, logger *slog.Logger) *ProfileCache {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileCache{source: source, clock: clock, ttl: ttl, logger: logger}
}

func (c *ProfileCache) Get(ctx context.Context) (domain.Profile, bool) {
	if profile, ok := c.cached(); ok {
		telemetry.RecordCacheLookup(ctx, profileCacheName, telemetry.CacheHit)
		return profile, true
	}
	if c.source == nil {
		return domain.Profile{}, false
	}
	telemetry.RecordCacheLookup(ctx, profileCacheName, telemetry.CacheMiss)

	// The fetch outlives any single caller so that joiners are not failed by
	// the first caller going away.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(profileFlightKey, func() (any, error) {
		if profile, ok := c.cached(); ok {
			return profile, nil
		}

		profile, err := c.source.GetProfile(fetchCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.profile = profile
		c.expiresAt = c.clock.Now().Add(c.ttl)
		c.present = true
		c.mu.Unlock()
		return profile, nil
	})

	select {
	case <-ctx.Done():
		return domain.Profile{}, false
	case res := <-ch:
		if res.Err != nil {
			c.logger.Debug("profile unavailable", "error", res.Err)
			return domain.Profile{}, false
		}
		if res.Shared {
			telemetry.RecordCacheLookup(ctx, profileCacheName, telemetry.CacheShared)
		}
		return res.Val.(domain.Profile), true
	}
}

func (c *ProfileCache) Invalidate() {
	c.mu.Lock()
	c.profile = domain.Profile{}
	c.expiresAt = time.Time{}
	c.present = false
	c.mu.Unlock()
}

func (c *ProfileCache) cached() (domain.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.present {
		return domain.Profile{}, false
	}
	if !c.clock.Now().Before(c.expiresAt) {
		c.profile = domain.Profile{}
		c.present = false
		return domain.Profile{}, false
	}
	return c.profile, true
}
