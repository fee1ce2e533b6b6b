package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-quotes/internal/catalog"
	"github.com/noah-isme/backend-quotes/internal/common"
	"github.com/noah-isme/backend-quotes/internal/quote"
)

// ConfigLoader loads a deal's pricing configuration.
type ConfigLoader interface {
	LoadConfig(ctx context.Context, dealID string) (quote.Config, error)
}

// SnapshotProvider yields the current catalog snapshot.
type SnapshotProvider interface {
	Snapshot() catalog.Snapshot
}

// Handler exposes the line-item commit endpoint.
type Handler struct {
	Controller *Controller
	Loader     ConfigLoader
	Catalog    SnapshotProvider
	Validate   *validator.Validate
}

// commitRequest optionally overrides the deal-stored configuration, letting a
// caller commit an edited configuration in one round trip. When absent the
// configuration is loaded from the deal.
type commitRequest struct {
	Config *configPayload `json:"config"`
}

type configPayload struct {
	Bundles            []string `json:"bundles" validate:"required,min=1,dive,min=1"`
	NumEmployees       int      `json:"numEmployees" validate:"gte=0"`
	NumOfficeEmployees int      `json:"numOfficeEmployees" validate:"gte=0"`
	NumLocations       int      `json:"numLocations" validate:"gte=0"`
	NumAdvancedClocks  int      `json:"numAdvancedClocks" validate:"gte=0"`
	NumStandardClocks  int      `json:"numStandardClocks" validate:"gte=0"`
	NumIVREmployees    int      `json:"numIVREmployees" validate:"gte=0"`
	PayrollType        string   `json:"payrollType" validate:"omitempty,oneof=pepm per_check"`
	PayrollFrequency   string   `json:"payrollFrequency" validate:"omitempty,oneof=weekly biweekly semimonthly monthly"`
	SchedulingBillType string   `json:"schedulingBillType" validate:"omitempty,oneof=per_employee per_location"`
}

func (p *configPayload) toConfig() quote.Config {
	return quote.Config{
		Bundles:            p.Bundles,
		NumEmployees:       p.NumEmployees,
		NumOfficeEmployees: p.NumOfficeEmployees,
		NumLocations:       p.NumLocations,
		NumAdvancedClocks:  p.NumAdvancedClocks,
		NumStandardClocks:  p.NumStandardClocks,
		NumIVREmployees:    p.NumIVREmployees,
		PayrollType:        p.PayrollType,
		PayrollFrequency:   p.PayrollFrequency,
		SchedulingBillType: p.SchedulingBillType,
	}
}

// Commit handles POST /deals/{dealID}/line-items: compute the line items for
// the deal's configuration and reconcile the CRM's association set to exactly
// that list.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	dealID := strings.TrimSpace(chi.URLParam(r, "dealID"))
	if dealID == "" {
		common.JSONError(w, http.StatusBadRequest, "invalid_deal_id", "deal id is required", nil)
		return
	}

	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		common.JSONError(w, http.StatusBadRequest, "invalid_body", "invalid request body", err.Error())
		return
	}

	var cfg quote.Config
	if req.Config != nil {
		if err := h.Validate.Struct(req.Config); err != nil {
			common.JSONError(w, http.StatusBadRequest, "invalid_config", "invalid configuration", err.Error())
			return
		}
		cfg = req.Config.toConfig()
	} else {
		loaded, err := h.Loader.LoadConfig(r.Context(), dealID)
		if err != nil {
			common.JSONError(w, http.StatusBadGateway, "deal_unavailable", "failed to load deal configuration", err.Error())
			return
		}
		cfg = loaded
	}

	snap := h.Catalog.Snapshot()
	if snap.Len() == 0 {
		common.JSONError(w, http.StatusServiceUnavailable, "catalog_unavailable", "product catalog has not been loaded yet", nil)
		return
	}

	items := quote.Compute(cfg, snap)
	result, err := h.Controller.Run(r.Context(), dealID, items)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			common.JSONError(w, http.StatusBadRequest, "invalid_request", "nothing to commit: no line items computed for this configuration", nil)
		case errors.Is(err, ErrCreateFailed):
			common.JSONError(w, http.StatusBadGateway, "create_failed", "failed to create line items", err.Error())
		default:
			common.JSONError(w, http.StatusInternalServerError, "internal", "reconciliation failed", err.Error())
		}
		return
	}

	common.JSON(w, http.StatusOK, result)
}
