// Package metrics holds the Prometheus collectors shared by all services.
// Collectors are registered on the default registry via promauto and exposed
// by each service on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finance_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "route"},
	)

	HTTPRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_http_rate_limited_total",
			Help: "Requests rejected by the per-user rate limiter",
		},
		[]string{"route"},
	)

	// Event streams
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_events_published_total",
			Help: "Events written to Redis streams",
		},
		[]string{"stream", "type", "result"}, // result: "ok", "error"
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_events_consumed_total",
			Help: "Events read from Redis streams by consumer groups",
		},
		[]string{"stream", "group", "result"}, // result: "ok", "error", "dropped"
	)

	// Cache
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_cache_lookups_total",
			Help: "Read-model cache lookups",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// Search index
	SearchIndexOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_search_index_operations_total",
			Help: "Search index writes and queries",
		},
		[]string{"operation", "result"},
	)

	// LLM
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finance_llm_request_duration_seconds",
			Help:    "Latency of LLM calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"operation", "result"},
	)

	LLMBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "finance_llm_circuit_breaker_state",
			Help: "LLM circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	RecordAnalyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_record_analyses_total",
			Help: "Record analyses attempted by the analyser consumer",
		},
		[]string{"result"},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "finance_websocket_connections",
			Help: "Currently connected WebSocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finance_websocket_messages_sent_total",
			Help: "Messages queued to WebSocket clients",
		},
	)
)

func RecordHTTPRequest(service, method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(service, method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(service, method, route).Observe(duration.Seconds())
}

func RecordPublish(stream, eventType string, err error) {
	EventsPublished.WithLabelValues(stream, eventType, resultLabel(err)).Inc()
}

func RecordConsume(stream, group, result string) {
	EventsConsumed.WithLabelValues(stream, group, result).Inc()
}

func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

func RecordSearchOp(operation string, err error) {
	SearchIndexOps.WithLabelValues(operation, resultLabel(err)).Inc()
}

func RecordLLMRequest(operation string, duration time.Duration, err error) {
	LLMRequestDuration.WithLabelValues(operation, resultLabel(err)).Observe(duration.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
