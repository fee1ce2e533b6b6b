package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-quotes/internal/crm"
	"github.com/noah-isme/backend-quotes/internal/quote"
)

// fakeDealStore tracks line items associated with one deal and records call
// order so tests can assert create-before-archive.
type fakeDealStore struct {
	nextID     int
	associated []string
	createErr  error
	listErr    error
	archiveErr error
	calls      []string
	lastCreate []crm.LineItemInput
}

func (f *fakeDealStore) BatchCreateLineItems(_ context.Context, _ string, inputs []crm.LineItemInput) ([]crm.CreatedLineItem, error) {
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.lastCreate = inputs
	created := make([]crm.CreatedLineItem, 0, len(inputs))
	for _, in := range inputs {
		f.nextID++
		id := fmt.Sprintf("li-%d", f.nextID)
		f.associated = append(f.associated, id)
		created = append(created, crm.CreatedLineItem{ID: id, Name: in.Properties["name"]})
	}
	return created, nil
}

func (f *fakeDealStore) ListAssociatedLineItems(_ context.Context, _ string) ([]string, error) {
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]string, len(f.associated))
	copy(out, f.associated)
	return out, nil
}

func (f *fakeDealStore) BatchArchiveLineItems(_ context.Context, ids []string) error {
	f.calls = append(f.calls, "archive")
	if f.archiveErr != nil {
		return f.archiveErr
	}
	keep := f.associated[:0]
	archived := make(map[string]bool, len(ids))
	for _, id := range ids {
		archived[id] = true
	}
	for _, id := range f.associated {
		if !archived[id] {
			keep = append(keep, id)
		}
	}
	f.associated = keep
	return nil
}

func testItems() []quote.LineItem {
	return []quote.LineItem{
		{ProductID: "101", Name: "Payroll PEPM", UnitCost: decimal.RequireFromString("12.50"), Quantity: 25, Frequency: quote.FrequencyMonthly},
		{ProductID: "102", Name: "Initial Implementation", UnitCost: decimal.RequireFromString("3000"), Quantity: 1, Frequency: quote.FrequencyOneTime},
	}
}

func TestRunReplacesPriorLineItems(t *testing.T) {
	store := &fakeDealStore{associated: []string{"old-1", "old-2"}}
	ctrl := NewController(store, zerolog.Nop())

	result, err := ctrl.Run(context.Background(), "9001", testItems())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Empty(t, result.Warning)
	require.Len(t, result.Created, 2)
	require.Equal(t, "Payroll PEPM", result.Created[0].Name)

	// old items are gone, fresh ones remain
	require.Len(t, store.associated, 2)
	require.NotContains(t, store.associated, "old-1")
	require.Equal(t, []string{"create", "list", "archive"}, store.calls)
}

func TestRunValidatesInput(t *testing.T) {
	ctrl := NewController(&fakeDealStore{}, zerolog.Nop())

	_, err := ctrl.Run(context.Background(), "", testItems())
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = ctrl.Run(context.Background(), "9001", nil)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRunCreateFailureTouchesNothing(t *testing.T) {
	store := &fakeDealStore{associated: []string{"old-1"}, createErr: errors.New("429 too many requests")}
	ctrl := NewController(store, zerolog.Nop())

	_, err := ctrl.Run(context.Background(), "9001", testItems())
	require.ErrorIs(t, err, ErrCreateFailed)

	// nothing was listed or archived, prior items untouched
	require.Equal(t, []string{"create"}, store.calls)
	require.Equal(t, []string{"old-1"}, store.associated)
}

func TestRunArchiveFailureIsPartialSuccess(t *testing.T) {
	store := &fakeDealStore{associated: []string{"old-1"}, archiveErr: errors.New("500")}
	ctrl := NewController(store, zerolog.Nop())

	result, err := ctrl.Run(context.Background(), "9001", testItems())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.Warning)
	require.Len(t, result.Created, 2)
}

func TestRunListFailureIsPartialSuccess(t *testing.T) {
	store := &fakeDealStore{listErr: errors.New("timeout")}
	ctrl := NewController(store, zerolog.Nop())

	result, err := ctrl.Run(context.Background(), "9001", testItems())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.Warning)
}

func TestRunIsIdempotentAfterPartialRun(t *testing.T) {
	// simulate a crash between create and archive: both old and new sets are
	// associated when the next run starts
	store := &fakeDealStore{associated: []string{"old-1", "old-2", "old-3"}, archiveErr: errors.New("down")}
	ctrl := NewController(store, zerolog.Nop())

	first, err := ctrl.Run(context.Background(), "9001", testItems())
	require.NoError(t, err)
	require.NotEmpty(t, first.Warning)
	require.Len(t, store.associated, 5, "old and new both linger after archive failure")

	store.archiveErr = nil
	second, err := ctrl.Run(context.Background(), "9001", testItems())
	require.NoError(t, err)
	require.Empty(t, second.Warning)

	// only the second run's items survive
	require.Len(t, store.associated, 2)
	for _, created := range second.Created {
		require.Contains(t, store.associated, created.ID)
	}
}

func TestEncodeItemsPropertyMapping(t *testing.T) {
	items := []quote.LineItem{
		{ProductID: "101", Name: "Payroll PEPM", UnitCost: decimal.RequireFromString("12.5"), Quantity: 25, Frequency: quote.FrequencyMonthly},
		{ProductID: "N/A", Name: "Scheduling Per Location", UnitCost: decimal.Zero, Quantity: 2, Frequency: quote.FrequencyOneTime},
		{Name: "IVR Base Fee", UnitCost: decimal.RequireFromString("50"), Quantity: 1, Frequency: quote.FrequencyMonthly},
	}
	inputs := encodeItems(items)
	require.Len(t, inputs, 3)

	first := inputs[0].Properties
	require.Equal(t, "Payroll PEPM", first["name"])
	require.Equal(t, "25", first["quantity"])
	require.Equal(t, "12.5", first["price"])
	require.Equal(t, "101", first["hs_product_id"])
	require.Equal(t, "flat", first["hs_pricing_model"])
	require.Equal(t, "monthly", first["recurringbillingfrequency"])

	second := inputs[1].Properties
	_, hasProduct := second["hs_product_id"]
	require.False(t, hasProduct, "placeholder ids never reach the CRM")
	_, hasFreq := second["recurringbillingfrequency"]
	require.False(t, hasFreq, "one_time items carry no recurring billing field")

	third := inputs[2].Properties
	_, hasProduct = third["hs_product_id"]
	require.False(t, hasProduct, "synthetic items carry no product id")
}
