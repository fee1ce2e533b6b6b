// Package reconcile replaces a deal's line items with a freshly computed set.
// Each run is a single pass: validate, create the new items, diff against the
// deal's association set, archive the stale ones. Creation always precedes
// archiving so a failed run never leaves the deal without line items.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-quotes/internal/crm"
	"github.com/noah-isme/backend-quotes/internal/obs"
	"github.com/noah-isme/backend-quotes/internal/quote"
)

// Errors reported by a reconciliation run.
var (
	ErrInvalidRequest = errors.New("reconcile: missing deal id or empty line item list")
	ErrCreateFailed   = errors.New("reconcile: batch create failed")
)

// Store is the slice of the CRM a reconciliation run needs.
type Store interface {
	BatchCreateLineItems(ctx context.Context, dealID string, inputs []crm.LineItemInput) ([]crm.CreatedLineItem, error)
	ListAssociatedLineItems(ctx context.Context, dealID string) ([]string, error)
	BatchArchiveLineItems(ctx context.Context, ids []string) error
}

// Result is the caller-facing outcome of one run. Warning carries the
// non-fatal archive failure message on partial success.
type Result struct {
	Success bool                  `json:"success"`
	Created []crm.CreatedLineItem `json:"created,omitempty"`
	Warning string                `json:"warning,omitempty"`
}

// Controller drives the create-diff-archive sequence.
type Controller struct {
	store  Store
	logger zerolog.Logger
}

// NewController constructs a Controller.
func NewController(store Store, logger zerolog.Logger) *Controller {
	return &Controller{store: store, logger: logger}
}

// Run reconciles the deal's line items to exactly the given computed set.
// Rerunning with the same configuration is safe: the fresh items are created
// first and every prior association not in the fresh id set is retired,
// including leftovers from a run that crashed between create and archive.
func (c *Controller) Run(ctx context.Context, dealID string, items []quote.LineItem) (Result, error) {
	if strings.TrimSpace(dealID) == "" || len(items) == 0 {
		c.countRun("invalid")
		return Result{}, ErrInvalidRequest
	}

	created, err := c.store.BatchCreateLineItems(ctx, dealID, encodeItems(items))
	if err != nil {
		c.countRun("create_failed")
		c.logger.Error().Err(err).Str("deal_id", dealID).Msg("reconcile_create_failed")
		return Result{}, fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}
	c.observeCreated(len(created))

	createdIDs := make(map[string]bool, len(created))
	for _, item := range created {
		createdIDs[item.ID] = true
	}

	associated, err := c.store.ListAssociatedLineItems(ctx, dealID)
	if err != nil {
		// new items exist and are associated; only cleanup was skipped
		c.countRun("partial")
		c.logger.Warn().Err(err).Str("deal_id", dealID).Msg("reconcile_diff_failed")
		return Result{Success: true, Created: created, Warning: "created line items but could not list prior ones for cleanup"}, nil
	}

	var stale []string
	for _, id := range associated {
		if !createdIDs[id] {
			stale = append(stale, id)
		}
	}

	if len(stale) > 0 {
		if err := c.store.BatchArchiveLineItems(ctx, stale); err != nil {
			c.countRun("partial")
			c.logger.Warn().Err(err).Str("deal_id", dealID).Int("stale", len(stale)).Msg("reconcile_archive_failed")
			return Result{Success: true, Created: created, Warning: "created line items but failed to archive prior ones"}, nil
		}
		c.observeArchived(len(stale))
	}

	c.countRun("success")
	c.logger.Info().Str("deal_id", dealID).Int("created", len(created)).Int("archived", len(stale)).Msg("reconcile_done")
	return Result{Success: true, Created: created}, nil
}

// encodeItems maps computed line items onto CRM line-item properties. A
// one_time frequency maps to no recurring billing field at all.
func encodeItems(items []quote.LineItem) []crm.LineItemInput {
	inputs := make([]crm.LineItemInput, 0, len(items))
	for _, item := range items {
		props := map[string]string{
			"name":             item.Name,
			"quantity":         fmt.Sprintf("%d", item.Quantity),
			"price":            item.UnitCost.String(),
			"hs_pricing_model": "flat",
		}
		if item.ProductID != "" && item.ProductID != "N/A" {
			props["hs_product_id"] = item.ProductID
		}
		freq := strings.ToLower(item.Frequency)
		if freq != "" && freq != quote.FrequencyOneTime {
			props["recurringbillingfrequency"] = freq
		}
		inputs = append(inputs, crm.LineItemInput{Properties: props})
	}
	return inputs
}

func (c *Controller) countRun(result string) {
	if obs.ReconcileRunTotal != nil {
		obs.ReconcileRunTotal.WithLabelValues(result).Inc()
	}
}

func (c *Controller) observeCreated(n int) {
	if obs.ReconcileItemsCreated != nil {
		obs.ReconcileItemsCreated.Add(float64(n))
	}
}

func (c *Controller) observeArchived(n int) {
	if obs.ReconcileItemsArchived != nil {
		obs.ReconcileItemsArchived.Add(float64(n))
	}
}
