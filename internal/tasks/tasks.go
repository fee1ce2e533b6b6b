// Package tasks defines the background jobs processed by the worker.
package tasks

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-quotes/internal/lock"
)

// TypeCatalogRefresh periodically re-fetches the product catalog so quote
// previews never price against a snapshot older than the refresh interval.
const TypeCatalogRefresh = "catalog:refresh"

// refreshLockKey serialises refreshes across worker replicas; the snapshot is
// cheap to rebuild but there is no point doing it twice concurrently.
const refreshLockKey = "lock:catalog:refresh"

// NewCatalogRefreshTask builds the periodic refresh task.
func NewCatalogRefreshTask() *asynq.Task {
	return asynq.NewTask(TypeCatalogRefresh, nil)
}

// Refresher re-fetches the catalog snapshot.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// CatalogRefreshHandler processes catalog refresh tasks under a distributed
// lock.
type CatalogRefreshHandler struct {
	Store   Refresher
	Locker  lock.Locker
	LockTTL time.Duration
	Logger  zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (h CatalogRefreshHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	ttl := h.LockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return h.Locker.WithLock(ctx, refreshLockKey, ttl, func(ctx context.Context) error {
		if err := h.Store.Refresh(ctx); err != nil {
			h.Logger.Warn().Err(err).Msg("scheduled catalog refresh failed")
			return err
		}
		return nil
	})
}
