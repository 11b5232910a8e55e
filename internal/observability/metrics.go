// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Fetch metrics
	PagesFetched         prometheus.Counter
	TransactionsFetched  prometheus.Counter
	RateLimitDeferrals   prometheus.Counter
	FetchErrors          *prometheus.CounterVec

	// Extraction metrics
	LegsExtracted        *prometheus.CounterVec
	TransactionsDropped  prometheus.Counter
	DustTransfersSkipped prometheus.Counter

	// Pricing metrics
	PriceCacheHits    prometheus.Counter
	PriceCacheMisses  prometheus.Counter
	PriceLookupErrors prometheus.Counter
	LegsUnpriced      prometheus.Counter

	// Ledger metrics
	LotsCreated  prometheus.Counter
	SellsSettled prometheus.Counter
	Oversells    prometheus.Counter

	// Pipeline metrics
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wallet_pnl"
	}

	return &Metrics{
		PagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "pages_fetched_total",
			Help:      "Total number of transaction pages fetched",
		}),
		TransactionsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "transactions_fetched_total",
			Help:      "Total number of swap transactions fetched",
		}),
		RateLimitDeferrals: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "rate_limit_deferrals_total",
			Help:      "Total number of 429 responses that caused a backoff sleep",
		}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "fetch_errors_total",
			Help:      "Total number of fetch errors by API",
		}, []string{"api"}),

		LegsExtracted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "legs_extracted_total",
			Help:      "Total number of trade legs extracted by strategy",
		}, []string{"strategy"}),
		TransactionsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "transactions_dropped_total",
			Help:      "Total number of transactions no strategy could parse",
		}),
		DustTransfersSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "dust_transfers_skipped_total",
			Help:      "Total number of effectively-zero transfers filtered out",
		}),

		PriceCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "cache_hits_total",
			Help:      "Total number of (mint, minute) price cache hits",
		}),
		PriceCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "cache_misses_total",
			Help:      "Total number of (mint, minute) price cache misses",
		}),
		PriceLookupErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "lookup_errors_total",
			Help:      "Total number of failed price oracle lookups",
		}),
		LegsUnpriced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "legs_unpriced_total",
			Help:      "Total number of legs left unpriced after enrichment",
		}),

		LotsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "lots_created_total",
			Help:      "Total number of FIFO lots created from priced buys",
		}),
		SellsSettled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "sells_settled_total",
			Help:      "Total number of priced sell legs settled",
		}),
		Oversells: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "oversells_total",
			Help:      "Total number of sells that exhausted the lot queue",
		}),

		PipelineRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"status"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPageFetched records one fetched page of n transactions.
func RecordPageFetched(n int) {
	DefaultMetrics.PagesFetched.Inc()
	DefaultMetrics.TransactionsFetched.Add(float64(n))
}

// RecordRateLimitDeferral increments the 429 backoff counter.
func RecordRateLimitDeferral() {
	DefaultMetrics.RateLimitDeferrals.Inc()
}

// RecordFetchError records a fetch error for the given API.
func RecordFetchError(api string) {
	DefaultMetrics.FetchErrors.WithLabelValues(api).Inc()
}

// RecordLegsExtracted records legs produced by an extraction strategy.
func RecordLegsExtracted(strategy string, n int) {
	DefaultMetrics.LegsExtracted.WithLabelValues(strategy).Add(float64(n))
}

// RecordTransactionDropped increments the unparsed-transaction counter.
func RecordTransactionDropped() {
	DefaultMetrics.TransactionsDropped.Inc()
}

// RecordDustSkipped increments the dust filter counter.
func RecordDustSkipped() {
	DefaultMetrics.DustTransfersSkipped.Inc()
}

// RecordPriceCacheHit increments the price cache hit counter.
func RecordPriceCacheHit() {
	DefaultMetrics.PriceCacheHits.Inc()
}

// RecordPriceCacheMiss increments the price cache miss counter.
func RecordPriceCacheMiss() {
	DefaultMetrics.PriceCacheMisses.Inc()
}

// RecordPriceLookupError increments the failed oracle lookup counter.
func RecordPriceLookupError() {
	DefaultMetrics.PriceLookupErrors.Inc()
}

// RecordLegUnpriced increments the unpriced leg counter.
func RecordLegUnpriced() {
	DefaultMetrics.LegsUnpriced.Inc()
}

// RecordSettlement records ledger activity for one run.
func RecordSettlement(lots, sells, oversells int) {
	DefaultMetrics.LotsCreated.Add(float64(lots))
	DefaultMetrics.SellsSettled.Add(float64(sells))
	DefaultMetrics.Oversells.Add(float64(oversells))
}

// RecordPipelineRun records a pipeline run outcome.
func RecordPipelineRun(status string, durationSeconds float64) {
	DefaultMetrics.PipelineRuns.WithLabelValues(status).Inc()
	DefaultMetrics.PipelineDuration.Observe(durationSeconds)
}
