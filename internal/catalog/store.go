package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-quotes/internal/obs"
)

// ErrCatalogUnavailable signals that a refresh could not reach the product
// catalog. The previous snapshot stays in place; stale prices beat no prices.
var ErrCatalogUnavailable = errors.New("catalog: product catalog unavailable")

// Fetcher lists sellable products from the upstream catalog.
type Fetcher interface {
	ListProducts(ctx context.Context, allowedIDs []string) ([]Product, error)
}

// Store is the single-writer cell holding the current catalog snapshot.
// Readers take the snapshot by value; Refresh swaps it wholesale.
type Store struct {
	mu      sync.RWMutex
	current Snapshot

	fetcher Fetcher
	allowed []string
	warm    *Cache
	logger  zerolog.Logger
}

// StoreConfig groups Store dependencies.
type StoreConfig struct {
	Fetcher    Fetcher
	AllowedIDs []string
	Warm       *Cache
	Logger     zerolog.Logger
}

// NewStore constructs a Store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("catalog: fetcher is required")
	}
	return &Store{
		fetcher: cfg.Fetcher,
		allowed: cfg.AllowedIDs,
		warm:    cfg.Warm,
		logger:  cfg.Logger,
	}, nil
}

// Snapshot returns the current catalog snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Refresh fetches the full product catalog and atomically replaces the
// snapshot. On failure the prior snapshot is retained and the error wraps
// ErrCatalogUnavailable.
func (s *Store) Refresh(ctx context.Context) error {
	products, err := s.fetcher.ListProducts(ctx, s.allowed)
	if err != nil {
		s.countRefresh("error")
		s.logger.Error().Err(err).Msg("catalog_refresh_failed")
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	snap := NewSnapshot(products, time.Now().UTC())

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	s.countRefresh("success")
	if obs.CatalogSnapshotSize != nil {
		obs.CatalogSnapshotSize.Set(float64(snap.Len()))
	}
	s.logger.Info().Int("products", snap.Len()).Msg("catalog_refreshed")

	if s.warm != nil {
		if err := s.warm.Save(ctx, snap); err != nil {
			s.logger.Warn().Err(err).Msg("catalog_warm_store_failed")
		}
	}
	return nil
}

// LoadWarm seeds the snapshot from the warm cache when present. Used on boot;
// a live Refresh replaces it as soon as one succeeds.
func (s *Store) LoadWarm(ctx context.Context) bool {
	if s.warm == nil {
		return false
	}
	snap, ok, err := s.warm.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("catalog_warm_load_failed")
		return false
	}
	if !ok || snap.Len() == 0 {
		return false
	}
	s.mu.Lock()
	if s.current.Len() == 0 {
		s.current = snap
	}
	s.mu.Unlock()
	s.logger.Info().Int("products", snap.Len()).Time("fetched_at", snap.FetchedAt()).Msg("catalog_warm_loaded")
	return true
}

func (s *Store) countRefresh(result string) {
	if obs.CatalogRefreshTotal != nil {
		obs.CatalogRefreshTotal.WithLabelValues(result).Inc()
	}
}
