package quote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-quotes/internal/catalog"
)

type fakeLoader struct {
	cfg Config
	err error
}

func (f fakeLoader) LoadConfig(context.Context, string) (Config, error) {
	return f.cfg, f.err
}

type fixedSnapshot struct {
	snap catalog.Snapshot
}

func (f fixedSnapshot) Snapshot() catalog.Snapshot { return f.snap }

func previewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/deals/{dealID}/quote", h.Preview)
	return r
}

func TestPreviewReturnsItemsAndSummary(t *testing.T) {
	snap := testSnapshot(t)
	h := &Handler{
		Loader:  fakeLoader{cfg: Config{Bundles: []string{"HR"}, NumOfficeEmployees: 3}},
		Catalog: fixedSnapshot{snap: snap},
	}

	rr := httptest.NewRecorder()
	previewRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/deals/9001/quote", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		LineItems []LineItem `json:"lineItems"`
		Summary   Summary    `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.LineItems, 2)
	require.Equal(t, "HR Base Fee", body.LineItems[0].Name)
	require.False(t, body.Summary.Monthly.IsZero())
}

func TestPreviewEmptyCatalogIs503(t *testing.T) {
	h := &Handler{
		Loader:  fakeLoader{},
		Catalog: fixedSnapshot{snap: catalog.NewSnapshot(nil, time.Time{})},
	}
	rr := httptest.NewRecorder()
	previewRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/deals/9001/quote", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPreviewDealLoadFailureIs502(t *testing.T) {
	h := &Handler{
		Loader:  fakeLoader{err: errors.New("crm: status 500")},
		Catalog: fixedSnapshot{snap: testSnapshot(t)},
	}
	rr := httptest.NewRecorder()
	previewRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/deals/9001/quote", nil))
	require.Equal(t, http.StatusBadGateway, rr.Code)
}
