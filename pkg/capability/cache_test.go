package capability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	catalog Catalog
	err     error
	calls   int
}

func (f *fakeFetcher) FetchCatalog(_ context.Context) (Catalog, error) {
	f.calls++

	return f.catalog, f.err
}

var errEngineDown = errors.New("engine down")

func TestCache_FetchesOnce(t *testing.T) {
	fetcher := &fakeFetcher{catalog: Catalog{"KSampler": {}}}
	cache := NewCache(fetcher)

	first, err := cache.Get(t.Context())
	require.NoError(t, err)
	require.Contains(t, first, "KSampler")

	second, err := cache.Get(t.Context())
	require.NoError(t, err)
	assert.Contains(t, second, "KSampler")
	assert.Equal(t, 1, fetcher.calls, "fresh catalog must not refetch")
}

func TestCache_RefetchesAfterTTL(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	fetcher := &fakeFetcher{catalog: Catalog{"KSampler": {}}}
	cache := NewCache(fetcher, WithTTL(5*time.Minute), WithClock(clock))

	_, err := cache.Get(t.Context())
	require.NoError(t, err)

	now = now.Add(5*time.Minute + time.Second)

	_, err = cache.Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestCache_ServesStaleOnFetchFailure(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	fetcher := &fakeFetcher{catalog: Catalog{"KSampler": {}}}
	cache := NewCache(fetcher, WithClock(clock))

	_, err := cache.Get(t.Context())
	require.NoError(t, err)

	now = now.Add(DefaultTTL + time.Second)
	fetcher.err = errEngineDown

	catalog, err := cache.Get(t.Context())
	require.ErrorIs(t, err, errEngineDown)
	assert.Contains(t, catalog, "KSampler", "stale catalog is better than none")
}

func TestCache_NothingFetchedYet(t *testing.T) {
	fetcher := &fakeFetcher{err: errEngineDown}
	cache := NewCache(fetcher)

	catalog, err := cache.Get(t.Context())
	require.ErrorIs(t, err, errEngineDown)
	assert.Nil(t, catalog)
}

func TestCache_Invalidate(t *testing.T) {
	fetcher := &fakeFetcher{catalog: Catalog{"KSampler": {}}}
	cache := NewCache(fetcher)

	_, err := cache.Get(t.Context())
	require.NoError(t, err)

	cache.Invalidate()

	_, err = cache.Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls, "invalidation forces a refetch")
}
