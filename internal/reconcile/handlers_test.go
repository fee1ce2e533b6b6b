package reconcile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-quotes/internal/catalog"
	"github.com/noah-isme/backend-quotes/internal/quote"
)

type fakeLoader struct {
	cfg quote.Config
	err error
}

func (f fakeLoader) LoadConfig(context.Context, string) (quote.Config, error) {
	return f.cfg, f.err
}

type fixedSnapshot struct {
	snap catalog.Snapshot
}

func (f fixedSnapshot) Snapshot() catalog.Snapshot { return f.snap }

func commitRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/deals/{dealID}/line-items", h.Commit)
	return r
}

func handlerSnapshot() catalog.Snapshot {
	return catalog.NewSnapshot([]catalog.Product{
		{ID: "1561785516", Name: "HR Base Fee", Price: decimal.RequireFromString("100"), Frequency: "monthly"},
		{ID: "1442524175", Name: "HR Premium", Price: decimal.RequireFromString("9"), Frequency: "monthly"},
	}, time.Now())
}

func newCommitHandler(store Store, loader ConfigLoader, snap catalog.Snapshot) *Handler {
	return &Handler{
		Controller: NewController(store, zerolog.Nop()),
		Loader:     loader,
		Catalog:    fixedSnapshot{snap: snap},
		Validate:   validator.New(),
	}
}

func TestCommitUsesDealConfiguration(t *testing.T) {
	store := &fakeDealStore{associated: []string{"old-1"}}
	h := newCommitHandler(store, fakeLoader{cfg: quote.Config{Bundles: []string{"HR"}, NumOfficeEmployees: 4}}, handlerSnapshot())

	rr := httptest.NewRecorder()
	commitRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/deals/9001/line-items", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"success":true`)
	require.NotContains(t, store.associated, "old-1")
}

func TestCommitWithInlineConfigSkipsDealLoad(t *testing.T) {
	store := &fakeDealStore{}
	loader := fakeLoader{err: contextError("loader must not be called")}
	h := newCommitHandler(store, loader, handlerSnapshot())

	body := `{"config": {"bundles": ["HR"], "numOfficeEmployees": 2}}`
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/deals/9001/line-items", strings.NewReader(body))
	commitRouter(h).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, store.lastCreate, 2)
}

func TestCommitRejectsInvalidConfig(t *testing.T) {
	h := newCommitHandler(&fakeDealStore{}, fakeLoader{}, handlerSnapshot())

	body := `{"config": {"bundles": ["HR"], "numEmployees": -3}}`
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/deals/9001/line-items", strings.NewReader(body))
	commitRouter(h).ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "invalid_config")
}

func TestCommitEmptyComputedSetIs400(t *testing.T) {
	h := newCommitHandler(&fakeDealStore{}, fakeLoader{cfg: quote.Config{}}, handlerSnapshot())

	rr := httptest.NewRecorder()
	commitRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/deals/9001/line-items", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "invalid_request")
}

func TestCommitEmptyCatalogIs503(t *testing.T) {
	h := newCommitHandler(&fakeDealStore{}, fakeLoader{cfg: quote.Config{Bundles: []string{"HR"}}}, catalog.NewSnapshot(nil, time.Time{}))

	rr := httptest.NewRecorder()
	commitRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/deals/9001/line-items", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

type contextError string

func (e contextError) Error() string { return string(e) }
