// Package cache enforces freshness on top of a pluggable CacheStore.
package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

// ResultCache stores raw listings per normalised query for a fixed TTL.
// Store failures degrade to misses; the pipeline never sees them.
type ResultCache struct {
	store  ports.CacheStore
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

var _ ports.ListingCache = (*ResultCache)(nil)

// Option customises a ResultCache.
type Option func(*ResultCache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) {
		if now != nil {
			c.now = now
		}
	}
}

// New wires a store with the freshness window ttl.
func New(store ports.CacheStore, ttl time.Duration, log *slog.Logger, opts ...Option) *ResultCache {
	c := &ResultCache{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeKey lowercases the query and collapses whitespace runs.
func NormalizeKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Get returns cached listings for query while they are younger than the TTL.
// Entries at or past the TTL are evicted and reported absent.
func (c *ResultCache) Get(ctx context.Context, query string) ([]domain.RawListing, bool) {
	key := NormalizeKey(query)
	if key == "" {
		return nil, false
	}

	entry, ok, err := c.store.Load(ctx, key)
	if err != nil {
		c.warn("cache load failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	age := c.now().Sub(entry.FetchedAt)
	if age >= c.ttl {
		c.debug("cache entry expired", "key", key, "age", age)
		if err := c.store.Delete(ctx, key); err != nil {
			c.warn("cache evict failed", "key", key, "error", err)
		}
		return nil, false
	}

	if len(entry.Listings) == 0 {
		return nil, false
	}

	c.debug("cache hit", "key", key, "count", len(entry.Listings), "age", age)
	return domain.CloneListings(entry.Listings), true
}

// Put records listings for query stamped with the current time.
// Empty listings are ignored.
func (c *ResultCache) Put(ctx context.Context, query string, listings []domain.RawListing) {
	key := NormalizeKey(query)
	if key == "" || len(listings) == 0 {
		return
	}

	entry := domain.CacheEntry{
		Key:       key,
		Listings:  domain.CloneListings(listings),
		FetchedAt: c.now().UTC(),
	}
	if err := c.store.Save(ctx, entry); err != nil {
		c.warn("cache save failed", "key", key, "error", err)
		return
	}
	c.debug("cache stored", "key", key, "count", len(listings))
}

func (c *ResultCache) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *ResultCache) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
