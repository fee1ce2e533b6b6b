package quote

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-quotes/internal/catalog"
	"github.com/noah-isme/backend-quotes/internal/common"
	"github.com/noah-isme/backend-quotes/internal/obs"
)

// ConfigLoader loads a deal's pricing configuration.
type ConfigLoader interface {
	LoadConfig(ctx context.Context, dealID string) (Config, error)
}

// SnapshotProvider yields the current catalog snapshot.
type SnapshotProvider interface {
	Snapshot() catalog.Snapshot
}

// Handler exposes the quote preview endpoint.
type Handler struct {
	Loader  ConfigLoader
	Catalog SnapshotProvider
}

// Preview handles GET /deals/{dealID}/quote: load the deal configuration,
// compute line items against the current catalog snapshot and return them with
// per-frequency totals. Nothing is written to the deal.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	dealID := strings.TrimSpace(chi.URLParam(r, "dealID"))
	if dealID == "" {
		common.JSONError(w, http.StatusBadRequest, "invalid_deal_id", "deal id is required", nil)
		return
	}

	snap := h.Catalog.Snapshot()
	if snap.Len() == 0 {
		h.countPreview("catalog_unavailable")
		common.JSONError(w, http.StatusServiceUnavailable, "catalog_unavailable", "product catalog has not been loaded yet", nil)
		return
	}

	cfg, err := h.Loader.LoadConfig(r.Context(), dealID)
	if err != nil {
		h.countPreview("deal_unavailable")
		common.JSONError(w, http.StatusBadGateway, "deal_unavailable", "failed to load deal configuration", err.Error())
		return
	}

	items := Compute(cfg, snap)
	h.countPreview("success")
	common.JSON(w, http.StatusOK, map[string]any{
		"config":    cfg,
		"lineItems": items,
		"summary":   Summarize(items),
	})
}

func (h *Handler) countPreview(result string) {
	if obs.QuotePreviewTotal != nil {
		obs.QuotePreviewTotal.WithLabelValues(result).Inc()
	}
}
