// Package metrics defines package-level Prometheus metric variables for
// counterd. Call Register() once at startup to expose them on the default
// registry, or RegisterWith() to use an isolated registry in tests.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Operations counts registry operations, labelled by operation and
	// outcome. Valid results: ok, conflict, not_found, invalid, error.
	Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "counterd_operations_total",
		Help: "Counter registry operations, by op (create|increment|read|delete) and result.",
	}, []string{"op", "result"})

	// CountersLive is the number of counters currently registered.
	CountersLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "counterd_counters",
		Help: "Number of live counters in the registry.",
	})

	// RequestDuration observes HTTP request latency by method and status code.
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "counterd_http_request_duration_seconds",
		Help:    "HTTP request latency, by method and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "code"})

	// StoreDBSizeBytes is the on-disk size of the bbolt database file.
	StoreDBSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "counterd_store_db_size_bytes",
		Help: "Size of the on-disk counter database in bytes (bolt backend only).",
	})
)

// Register registers all metrics with prometheus.DefaultRegisterer.
// Call once at process startup.
func Register() {
	RegisterWith(prometheus.DefaultRegisterer)
}

// RegisterWith registers all metrics with the given registerer.
// Use an isolated prometheus.NewRegistry() in tests to avoid conflicts.
func RegisterWith(reg prometheus.Registerer) {
	reg.MustRegister(
		Operations,
		CountersLive,
		RequestDuration,
		StoreDBSizeBytes,
	)
}
