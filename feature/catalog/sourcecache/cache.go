package sourcecache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc retrieves a category's raw records from its collaborator.
// All network and HTML work lives behind this function; the cache never
// performs I/O of its own.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cache gates a single category's data behind a TTL. A zero
// lastRefreshed means always expired, so the first Get fetches.
// Concurrent Gets for the same category collapse into one fetch;
// independent categories each own their own Cache and may refresh in
// parallel.
type Cache[T any] struct {
	mu            sync.RWMutex
	sf            singleflight.Group
	fetch         FetchFunc[T]
	ttl           time.Duration
	payload       T
	fetched       bool
	lastRefreshed time.Time
	now           func() time.Time
}

// New creates a cache around fetch with the given TTL.
func New[T any](fetch FetchFunc[T], ttl time.Duration) *Cache[T] {
	return &Cache[T]{fetch: fetch, ttl: ttl, now: time.Now}
}

// Seed marks the cache as refreshed at the given time without a payload
// fetch. Used on startup so a catalog persisted minutes ago is not
// immediately re-scraped. A later Get within the TTL returns the zero
// payload with refreshed=false, signalling the caller to reuse
// persisted state.
func (c *Cache[T]) Seed(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRefreshed = at
}

// Get returns the cached payload, refreshing it first when forced or
// expired. The boolean reports whether a fetch actually ran.
func (c *Cache[T]) Get(ctx context.Context, force bool) (T, bool, error) {
	c.mu.RLock()
	expired := c.expiredLocked()
	payload := c.payload
	c.mu.RUnlock()

	if !force && !expired {
		return payload, false, nil
	}

	type result struct {
		payload T
		fetched bool
	}
	v, err, _ := c.sf.Do("fetch", func() (any, error) {
		// Another caller may have refreshed while we waited; reuse its
		// payload and report that no fetch ran.
		c.mu.RLock()
		stillStale := force || c.expiredLocked()
		current := c.payload
		c.mu.RUnlock()
		if !stillStale {
			return result{payload: current}, nil
		}

		payload, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.payload = payload
		c.fetched = true
		c.lastRefreshed = c.now()
		c.mu.Unlock()
		return result{payload: payload, fetched: true}, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	res := v.(result)
	return res.payload, res.fetched, nil
}

// ExpiresIn returns the remaining freshness window, or false when the
// cache is already expired.
func (c *Cache[T]) ExpiresIn() (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.expiredLocked() {
		return 0, false
	}
	return c.lastRefreshed.Add(c.ttl).Sub(c.now()), true
}

// HasPayload reports whether the cache holds a fetched payload. A
// seeded cache does not until its first real fetch.
func (c *Cache[T]) HasPayload() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetched
}

// LastRefreshed returns the time of the last successful refresh; the
// zero time means never.
func (c *Cache[T]) LastRefreshed() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefreshed
}

func (c *Cache[T]) expiredLocked() bool {
	if c.lastRefreshed.IsZero() {
		return true
	}
	return c.now().After(c.lastRefreshed.Add(c.ttl))
}
