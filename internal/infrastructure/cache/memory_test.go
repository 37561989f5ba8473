package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T) (*MemoryCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	cache := NewMemoryCache()
	cache.now = clock.Now
	t.Cleanup(cache.Close)
	return cache, clock
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	analysis := &domain.ProductAnalysis{
		UserProduct:    domain.UserProduct{ProductName: "Mug", Price: domain.AmountFromText("$12")},
		Competitors:    []domain.Competitor{{ProductName: "Rival", Price: domain.NewAmount(11)}},
		SuggestedPrice: 12,
	}
	require.NoError(t, cache.Set(ctx, "analysis:mug", analysis, time.Minute))

	var got domain.ProductAnalysis
	require.NoError(t, cache.Get(ctx, "analysis:mug", &got))
	assert.Equal(t, *analysis, got)

	// mutating the hit leaves the stored copy untouched
	got.SuggestedPrice = 99
	var again domain.ProductAnalysis
	require.NoError(t, cache.Get(ctx, "analysis:mug", &again))
	assert.Equal(t, 12.0, again.SuggestedPrice)
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	var dest string
	err := cache.Get(context.Background(), "non-existent-key", &dest)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestMemoryCache_Get_DecodeError(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "text", time.Minute))

	var dest int
	err := cache.Get(ctx, "k", &dest)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCacheMiss)
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", "value", time.Second))

	var dest string
	require.NoError(t, cache.Get(ctx, "short", &dest))
	assert.Equal(t, "value", dest)

	clock.Advance(2 * time.Second)

	assert.ErrorIs(t, cache.Get(ctx, "short", &dest), domain.ErrCacheMiss)
}

func TestMemoryCache_RemoveExpired(t *testing.T) {
	cache, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", 1, time.Second))
	require.NoError(t, cache.Set(ctx, "long", 2, time.Hour))

	clock.Advance(time.Minute)

	assert.Equal(t, 1, cache.removeExpired())
	assert.Equal(t, 1, cache.Size())
}

func TestMemoryCache_Delete(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "delete-test", "value", time.Minute))
	require.NoError(t, cache.Delete(ctx, "delete-test"))

	var dest string
	assert.ErrorIs(t, cache.Get(ctx, "delete-test", &dest), domain.ErrCacheMiss)
}

func TestMemoryCache_Size(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	assert.Equal(t, 0, cache.Size())
	for i := 0; i < 5; i++ {
		require.NoError(t, cache.Set(ctx, fmt.Sprintf("key-%d", i), i, time.Minute))
	}
	assert.Equal(t, 5, cache.Size())

	require.NoError(t, cache.Delete(ctx, "key-0"))
	assert.Equal(t, 4, cache.Size())
}

func TestMemoryCache_SetUnencodable(t *testing.T) {
	cache, _ := newTestCache(t)
	err := cache.Set(context.Background(), "k", make(chan int), time.Minute)
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Size())
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", id)
			assert.NoError(t, cache.Set(ctx, key, id, time.Minute))

			var got int
			assert.NoError(t, cache.Get(ctx, key, &got))
			assert.Equal(t, id, got)
		}(i)
	}
	wg.Wait()
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	cache := NewMemoryCache()
	cache.Close()
	cache.Close()
}
