package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(ClientConfig{
		BaseURL:     srv.URL,
		AccessToken: "test-token",
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	return client, srv
}

func TestListProductsPagesAndFilters(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/crm/v3/objects/products", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("after") == "" {
			_, _ = w.Write([]byte(`{
				"results": [
					{"id": "101", "properties": {"name": "Payroll", "price": "12.50", "recurringbillingfrequency": "Monthly"}},
					{"id": "102", "properties": {"name": "Hidden", "price": "1"}}
				],
				"paging": {"next": {"after": "p2"}}
			}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"results": [
				{"id": "103", "properties": {"name": "Setup", "price": "500", "exclude_from_total": "true"}}
			]
		}`))
	}))

	products, err := client.ListProducts(context.Background(), []string{"101", "103"})
	require.NoError(t, err)
	require.Equal(t, "Bearer test-token", gotAuth)
	require.Len(t, products, 2, "ids outside the allow list are dropped")

	require.Equal(t, "101", products[0].ID)
	require.True(t, products[0].Price.Equal(decimal.RequireFromString("12.50")))
	require.Equal(t, "monthly", products[0].Frequency)

	require.Equal(t, "103", products[1].ID)
	require.Equal(t, "one_time", products[1].Frequency, "missing frequency reads as one_time")
	require.True(t, products[1].ExcludeFromTotal)
}

func TestListProductsBadPriceReadsAsZero(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results": [{"id": "101", "properties": {"name": "Broken", "price": "n/a"}}]}`))
	}))
	products, err := client.ListProducts(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.True(t, products[0].Price.IsZero())
}

func TestGetDealPropertiesDefaultsAbsentFields(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/crm/v3/objects/deals/9001", r.URL.Path)
		_, _ = w.Write([]byte(`{"properties": {"number_of_employees": "25", "payroll_type": null}}`))
	}))

	props, err := client.GetDealProperties(context.Background(), "9001", []string{"number_of_employees", "payroll_type", "payroll_frequency"})
	require.NoError(t, err)
	require.Equal(t, "25", props["number_of_employees"])
	require.Equal(t, "", props["payroll_type"])
	require.Equal(t, "", props["payroll_frequency"])
}

func TestUpdateDealPropertiesPatchBody(t *testing.T) {
	var gotMethod string
	var gotBody map[string]map[string]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"id": "9001"}`))
	}))

	err := client.UpdateDealProperties(context.Background(), "9001", map[string]string{"number_of_employees": "30"})
	require.NoError(t, err)
	require.Equal(t, http.MethodPatch, gotMethod)
	require.Equal(t, "30", gotBody["properties"]["number_of_employees"])
}

func TestBatchCreateLineItemsAssociatesToDeal(t *testing.T) {
	var gotBody struct {
		Inputs []struct {
			Properties   map[string]string `json:"properties"`
			Associations []struct {
				To    map[string]string `json:"to"`
				Types []map[string]any  `json:"types"`
			} `json:"associations"`
		} `json:"inputs"`
	}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/crm/v3/objects/line_items/batch/create", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"results": [{"id": "li-1", "properties": {"name": "Payroll PEPM"}}]}`))
	}))

	created, err := client.BatchCreateLineItems(context.Background(), "9001", []LineItemInput{
		{Properties: map[string]string{"name": "Payroll PEPM", "price": "12.5", "quantity": "25"}},
	})
	require.NoError(t, err)
	require.Equal(t, []CreatedLineItem{{ID: "li-1", Name: "Payroll PEPM"}}, created)

	require.Len(t, gotBody.Inputs, 1)
	assoc := gotBody.Inputs[0].Associations[0]
	require.Equal(t, "9001", assoc.To["id"])
	require.Equal(t, "HUBSPOT_DEFINED", assoc.Types[0]["associationCategory"])
	require.EqualValues(t, 20, assoc.Types[0]["associationTypeId"])
}

func TestListAssociatedLineItemsFollowsPaging(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/crm/v3/objects/deals/9001/associations/line_items", r.URL.Path)
		if r.URL.Query().Get("after") == "" {
			_, _ = w.Write([]byte(`{"results": [{"id": "li-1"}, {"id": "li-2"}], "paging": {"next": {"after": "x"}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"results": [{"id": "li-3"}]}`))
	}))

	ids, err := client.ListAssociatedLineItems(context.Background(), "9001")
	require.NoError(t, err)
	require.Equal(t, []string{"li-1", "li-2", "li-3"}, ids)
}

func TestBatchArchiveLineItemsEmptyIsNoop(t *testing.T) {
	called := false
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.BatchArchiveLineItems(context.Background(), nil))
	require.False(t, called)

	require.NoError(t, client.BatchArchiveLineItems(context.Background(), []string{"li-1"}))
	require.True(t, called)
}

func TestErrorCarriesStatusAndSnippet(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "scope missing"}`))
	}))

	_, err := client.GetDealProperties(context.Background(), "9001", []string{"payroll_type"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 403")
	require.Contains(t, err.Error(), "scope missing")
}
