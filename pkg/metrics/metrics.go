package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Journal metrics
	JournalEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tableside_journal_entries",
			Help: "Number of pending entries in the journal after the last persist",
		},
	)

	JournalReservations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tableside_journal_reservations",
			Help: "Number of reservations with at least one pending entry",
		},
	)

	JournalErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tableside_journal_errors_total",
			Help: "Journal load/persist failures that were degraded or swallowed, by operation",
		},
		[]string{"op"},
	)

	// Mutation metrics
	MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tableside_mutations_total",
			Help: "Total number of optimistic mutations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	RollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tableside_rollbacks_total",
			Help: "Total number of cache rollbacks by mutation kind",
		},
		[]string{"kind"},
	)

	MutationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tableside_mutation_duration_seconds",
			Help:    "Time from optimistic apply to settle in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Cache metrics
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tableside_fetch_duration_seconds",
			Help:    "Cache fetch duration in seconds by key",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"key"},
	)

	FetchesCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tableside_fetches_cancelled_total",
			Help: "Fetch results discarded because the key was cancelled while in flight",
		},
		[]string{"key"},
	)

	CacheInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tableside_cache_invalidations_total",
			Help: "Total number of cache invalidations by key",
		},
		[]string{"key"},
	)

	// Upstream metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tableside_api_requests_total",
			Help: "Total number of upstream API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tableside_api_request_duration_seconds",
			Help:    "Upstream API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tableside_events_dropped_total",
			Help: "Events not delivered because a subscriber buffer was full",
		},
		[]string{"type"},
	)

	// Reconciliation metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tableside_reconciliation_duration_seconds",
			Help:    "Time taken for one refresh cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tableside_reconciliation_cycles_total",
			Help: "Total number of refresh cycles",
		},
	)
)

func init() {
	prometheus.MustRegister(JournalEntries)
	prometheus.MustRegister(JournalReservations)
	prometheus.MustRegister(JournalErrorsTotal)
	prometheus.MustRegister(MutationsTotal)
	prometheus.MustRegister(RollbacksTotal)
	prometheus.MustRegister(MutationDuration)
	prometheus.MustRegister(FetchDuration)
	prometheus.MustRegister(FetchesCancelled)
	prometheus.MustRegister(CacheInvalidations)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(EventsDropped)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationCyclesTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
