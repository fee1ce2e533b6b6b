package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotePreviewTotal counts quote computations by outcome.
	QuotePreviewTotal *prometheus.CounterVec
	// ReconcileRunTotal counts reconciliation runs by terminal state.
	ReconcileRunTotal *prometheus.CounterVec
	// ReconcileItemsCreated counts line items created against deals.
	ReconcileItemsCreated prometheus.Counter
	// ReconcileItemsArchived counts stale line items archived from deals.
	ReconcileItemsArchived prometheus.Counter
	// CatalogRefreshTotal counts catalog refresh attempts by result.
	CatalogRefreshTotal *prometheus.CounterVec
	// CatalogSnapshotSize reports the number of products in the current snapshot.
	CatalogSnapshotSize prometheus.Gauge
	// CRMRequestTotal counts outbound CRM calls by operation and result.
	CRMRequestTotal *prometheus.CounterVec
	// CRMRequestLatency records outbound CRM call latency in milliseconds.
	CRMRequestLatency *prometheus.HistogramVec
	// PropertyWriteTotal counts deal property write-through outcomes.
	PropertyWriteTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotePreviewTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_preview_total",
			Help:      "Count of quote preview computations by outcome.",
		}, []string{"result"})
		ReconcileRunTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_run_total",
			Help:      "Count of line-item reconciliation runs by terminal state.",
		}, []string{"result"})
		ReconcileItemsCreated = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_items_created_total",
			Help:      "Number of line items created during reconciliation.",
		})
		ReconcileItemsArchived = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_items_archived_total",
			Help:      "Number of stale line items archived during reconciliation.",
		})
		CatalogRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_refresh_total",
			Help:      "Count of product catalog refresh attempts by result.",
		}, []string{"result"})
		CatalogSnapshotSize = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_snapshot_products",
			Help:      "Number of products held in the current catalog snapshot.",
		})
		CRMRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crm_request_total",
			Help:      "Count of outbound CRM API calls by operation and result.",
		}, []string{"operation", "result"})
		CRMRequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crm_request_duration_ms",
			Help:      "Latency for outbound CRM API calls in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"operation"})
		PropertyWriteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "property_write_total",
			Help:      "Count of deal property write-through outcomes.",
		}, []string{"result"})

		reg.MustRegister(
			QuotePreviewTotal,
			ReconcileRunTotal,
			ReconcileItemsCreated,
			ReconcileItemsArchived,
			CatalogRefreshTotal,
			CatalogSnapshotSize,
			CRMRequestTotal,
			CRMRequestLatency,
			PropertyWriteTotal,
		)
	})
}
