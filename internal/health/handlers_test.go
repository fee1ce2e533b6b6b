package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/noah-isme/backend-quotes/internal/health"
)

type stubChecker struct {
	redisErr error
	crmErr   error
}

func (s stubChecker) PingRedis(_ context.Context, _ time.Duration) error { return s.redisErr }
func (s stubChecker) PingCRM(_ context.Context, _ time.Duration) error   { return s.crmErr }

type stubCatalog int

func (s stubCatalog) Len() int { return int(s) }

func TestLive(t *testing.T) {
	handler := health.Handler{}
	rr := httptest.NewRecorder()
	handler.Live(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "ok" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestReadySuccess(t *testing.T) {
	handler := health.Handler{
		Checker:      stubChecker{},
		Catalog:      func() health.CatalogState { return stubCatalog(12) },
		RedisTimeout: 50 * time.Millisecond,
		CRMTimeout:   50 * time.Millisecond,
	}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status["redis"] != "ok" || status["crm"] != "ok" || status["catalog"] != "ok" {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestReadyCRMFailure(t *testing.T) {
	handler := health.Handler{
		Checker: stubChecker{crmErr: errors.New("crm down")},
		Catalog: func() health.CatalogState { return stubCatalog(12) },
	}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rr.Code)
	}
}

func TestReadyEmptyCatalog(t *testing.T) {
	handler := health.Handler{
		Checker: stubChecker{},
		Catalog: func() health.CatalogState { return stubCatalog(0) },
	}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rr.Code)
	}
}
