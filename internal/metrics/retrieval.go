package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval and provider Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fiscalia",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fiscalia",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fiscalia",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"model", "type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fiscalia",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	DocumentsExcludedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fiscalia",
			Name:      "documents_excluded_total",
			Help:      "Documents dropped from ranking after an embedding failure",
		},
	)

	DocumentCacheRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fiscalia",
			Name:      "document_cache_refresh_total",
			Help:      "Document cache refresh attempts by outcome",
		},
		[]string{"result"}, // "ok" / "stale" / "error"
	)

	ClassificationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fiscalia",
			Name:      "classification_total",
			Help:      "Question classification outcomes",
		},
		[]string{"label", "fallback"}, // fallback: "true" when the default label was used
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fiscalia",
			Name:      "generation_requests_total",
			Help:      "Total number of completion requests",
		},
		[]string{"model", "status"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(DocumentsExcludedTotal)
	prometheus.MustRegister(DocumentCacheRefreshTotal)
	prometheus.MustRegister(ClassificationTotal)
	prometheus.MustRegister(GenerationRequestsTotal)
	retrievalMetricsRegistered = true
}
