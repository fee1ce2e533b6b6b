package deal

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-quotes/internal/obs"
	"github.com/noah-isme/backend-quotes/internal/quote"
)

// ErrPropertyWriteFailed signals a rejected or unreachable property update.
// The locally held configuration is left untouched when this is returned.
var ErrPropertyWriteFailed = errors.New("deal: property write failed")

// Store is the slice of the CRM the gateway needs.
type Store interface {
	GetDealProperties(ctx context.Context, dealID string, fields []string) (map[string]string, error)
	UpdateDealProperties(ctx context.Context, dealID string, properties map[string]string) error
}

// Gateway reads and writes pricing configuration on deals. Writes resolve
// fully before the follow-up read so callers never observe a configuration
// ahead of what the CRM confirmed.
type Gateway struct {
	store  Store
	logger zerolog.Logger
}

// NewGateway constructs a Gateway.
func NewGateway(store Store, logger zerolog.Logger) *Gateway {
	return &Gateway{store: store, logger: logger}
}

// LoadConfig fetches and decodes the pricing configuration of one deal.
func (g *Gateway) LoadConfig(ctx context.Context, dealID string) (quote.Config, error) {
	props, err := g.store.GetDealProperties(ctx, dealID, configFields)
	if err != nil {
		return quote.Config{}, fmt.Errorf("deal: load config: %w", err)
	}
	return decodeConfig(props), nil
}

// WriteProperties applies the given property updates to the deal and, once the
// write is confirmed, reloads the configuration so derived values reflect it.
// On write failure nothing is reloaded and the error wraps
// ErrPropertyWriteFailed.
func (g *Gateway) WriteProperties(ctx context.Context, dealID string, properties map[string]string) (quote.Config, error) {
	if err := g.store.UpdateDealProperties(ctx, dealID, properties); err != nil {
		g.countWrite("error")
		g.logger.Warn().Err(err).Str("deal_id", dealID).Msg("deal_property_write_failed")
		return quote.Config{}, fmt.Errorf("%w: %v", ErrPropertyWriteFailed, err)
	}
	g.countWrite("success")

	cfg, err := g.LoadConfig(ctx, dealID)
	if err != nil {
		// the write landed; surface the refresh failure separately
		return quote.Config{}, err
	}
	return cfg, nil
}

func (g *Gateway) countWrite(result string) {
	if obs.PropertyWriteTotal != nil {
		obs.PropertyWriteTotal.WithLabelValues(result).Inc()
	}
}
