package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	products []Product
	err      error
	calls    int
	gotAllow []string
}

func (f *fakeFetcher) ListProducts(_ context.Context, allowedIDs []string) ([]Product, error) {
	f.calls++
	f.gotAllow = allowedIDs
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func testProducts() []Product {
	return []Product{
		{ID: "101", Name: "Payroll", Price: decimal.RequireFromString("12.50"), Frequency: "monthly"},
		{ID: "102", Name: "Setup", Price: decimal.RequireFromString("500"), Frequency: "one_time", ExcludeFromTotal: true},
	}
}

func TestRefreshSwapsSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{products: testProducts()}
	store, err := NewStore(StoreConfig{Fetcher: fetcher, AllowedIDs: []string{"101", "102"}, Logger: zerolog.Nop()})
	require.NoError(t, err)

	require.Equal(t, 0, store.Snapshot().Len())
	require.NoError(t, store.Refresh(context.Background()))

	snap := store.Snapshot()
	require.Equal(t, 2, snap.Len())
	require.Equal(t, []string{"101", "102"}, fetcher.gotAllow)

	p, ok := snap.Lookup("101")
	require.True(t, ok)
	require.Equal(t, "Payroll", p.Name)
	require.True(t, p.Price.Equal(decimal.RequireFromString("12.50")))
}

func TestRefreshFailureKeepsStaleSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{products: testProducts()}
	store, err := NewStore(StoreConfig{Fetcher: fetcher, Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, store.Refresh(context.Background()))

	fetcher.err = errors.New("upstream 502")
	err = store.Refresh(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrCatalogUnavailable)

	// prior snapshot still serves
	require.Equal(t, 2, store.Snapshot().Len())
}

func TestWarmCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCache(client, time.Hour)
	snap := NewSnapshot(testProducts(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, cache.Save(context.Background(), snap))

	restored, ok, err := cache.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, restored.Len())
	require.Equal(t, snap.FetchedAt(), restored.FetchedAt())

	p, found := restored.Lookup("102")
	require.True(t, found)
	require.True(t, p.ExcludeFromTotal)
	require.True(t, p.Price.Equal(decimal.RequireFromString("500")))
}

func TestWarmCacheMissing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	_, ok, err := NewCache(client, time.Hour).Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoadWarmSeedsOnlyEmptyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCache(client, time.Hour)
	warm := NewSnapshot(testProducts(), time.Now().UTC())
	require.NoError(t, cache.Save(context.Background(), warm))

	fetcher := &fakeFetcher{products: []Product{{ID: "999", Name: "Fresh", Price: decimal.NewFromInt(1)}}}
	store, err := NewStore(StoreConfig{Fetcher: fetcher, Warm: cache, Logger: zerolog.Nop()})
	require.NoError(t, err)

	require.True(t, store.LoadWarm(context.Background()))
	require.Equal(t, 2, store.Snapshot().Len())

	// a live refresh replaces the warm seed
	require.NoError(t, store.Refresh(context.Background()))
	require.Equal(t, 1, store.Snapshot().Len())

	// loading warm again must not clobber live data
	require.True(t, store.LoadWarm(context.Background()))
	_, ok := store.Snapshot().Lookup("999")
	require.True(t, ok)
}

func TestSnapshotProductsSortedByID(t *testing.T) {
	snap := NewSnapshot([]Product{
		{ID: "20", Name: "b"},
		{ID: "10", Name: "a"},
		{ID: "", Name: "dropped"},
	}, time.Now())
	products := snap.Products()
	require.Len(t, products, 2)
	require.Equal(t, "10", products[0].ID)
	require.Equal(t, "20", products[1].ID)
}
