package capability

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTL is how long a fetched catalog stays fresh.
const DefaultTTL = 5 * time.Minute

// CatalogFetcher is the read side of Client, split out so the cache and
// checker can be tested without a live engine.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context) (Catalog, error)
}

// Cache holds the last fetched catalog with its fetch time. Lookups past
// the TTL trigger a refetch; a failed refetch serves the stale catalog
// rather than failing validation. Replacement is copy-on-write: readers
// always see a complete catalog value.
type Cache struct {
	mu        sync.RWMutex
	fetcher   CatalogFetcher
	catalog   Catalog
	fetchedAt time.Time
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL overrides the default freshness window.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates an empty cache over the given fetcher.
func NewCache(fetcher CatalogFetcher, opts ...CacheOption) *Cache {
	c := &Cache{
		fetcher: fetcher,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.With("module", "capability"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the cached catalog, refetching when stale. When a refetch
// fails it returns the stale catalog together with the fetch error; the
// catalog is nil only when nothing was ever fetched.
func (c *Cache) Get(ctx context.Context) (Catalog, error) {
	c.mu.RLock()
	catalog, fetchedAt := c.catalog, c.fetchedAt
	c.mu.RUnlock()

	if catalog != nil && c.now().Sub(fetchedAt) < c.ttl {
		return catalog, nil
	}

	fresh, err := c.fetcher.FetchCatalog(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "catalog refetch failed, serving stale", "error", err)

		return catalog, err
	}

	c.mu.Lock()
	c.catalog = fresh
	c.fetchedAt = c.now()
	c.mu.Unlock()

	return fresh, nil
}

// Invalidate drops the cached catalog entirely. Call it when the target
// engine instance changes.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.catalog = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
