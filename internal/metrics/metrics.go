package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsradar_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newsradar_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	CollectionCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsradar_collection_cycles_total",
			Help: "Total number of collection cycles by outcome.",
		},
		[]string{"outcome"},
	)

	SearchPagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsradar_search_pages_total",
			Help: "Total number of search API pages fetched.",
		},
	)

	QuotaDenialsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsradar_quota_denials_total",
			Help: "Total number of collection runs denied by quota admission.",
		},
	)

	ArticlesStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsradar_articles_stored_total",
			Help: "Total number of articles persisted after deduplication.",
		},
	)

	DuplicatesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsradar_duplicates_dropped_total",
			Help: "Total number of candidates dropped as duplicates.",
		},
	)

	TokensRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsradar_llm_tokens_recorded_total",
			Help: "Total number of LLM tokens booked against the daily budget.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CollectionCyclesTotal,
		SearchPagesTotal,
		QuotaDenialsTotal,
		ArticlesStoredTotal,
		DuplicatesDroppedTotal,
		TokensRecordedTotal,
	)
}
