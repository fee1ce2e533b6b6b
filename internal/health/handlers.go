package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/noah-isme/backend-quotes/internal/common"
)

// ready gates readiness during startup and graceful shutdown. The process
// flips it off before draining connections so the load balancer stops routing
// new requests ahead of the listener closing.
var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady toggles the readiness gate.
func SetReady(v bool) { ready.Store(v) }

// Checker probes the dependencies a quote request needs.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
	PingCRM(ctx context.Context, timeout time.Duration) error
}

// CatalogState reports whether a catalog snapshot is available to price from.
type CatalogState interface {
	Len() int
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	Catalog      func() CatalogState
	RedisTimeout time.Duration
	CRMTimeout   time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on the shutdown gate and dependency probes.
// An empty catalog snapshot reads as not ready: quoting without prices would
// silently produce zero-value line items.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSONError(w, http.StatusServiceUnavailable, "shutting_down", "server is draining", nil)
		return
	}
	if h.Checker == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "not_ready", "dependencies unavailable", nil)
		return
	}

	ctx := r.Context()
	status := map[string]string{
		"redis":   "ok",
		"crm":     "ok",
		"catalog": "ok",
	}
	healthy := true

	if err := h.Checker.PingRedis(ctx, h.redisTimeout()); err != nil {
		status["redis"] = err.Error()
		healthy = false
	}
	if err := h.Checker.PingCRM(ctx, h.crmTimeout()); err != nil {
		status["crm"] = err.Error()
		healthy = false
	}
	if h.Catalog != nil && h.Catalog().Len() == 0 {
		status["catalog"] = "empty snapshot"
		healthy = false
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, status)
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}

func (h Handler) crmTimeout() time.Duration {
	if h.CRMTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.CRMTimeout
}
