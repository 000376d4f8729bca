// Package metrics holds the Prometheus collectors shared by the SDK core.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace_sdk"

type Metrics struct {
	// Cache store
	CacheLookups   *prometheus.CounterVec
	CacheLoads     *prometheus.CounterVec
	CacheEvictions prometheus.Counter

	// Registry client
	RegistryRequests *prometheus.CounterVec
	RegistryDuration *prometheus.HistogramVec

	// Contract registry
	HandleResolutions *prometheus.CounterVec
	TokenProbes       *prometheus.CounterVec

	// Batch engine
	BatchOperations *prometheus.CounterVec
	BatchInFlight   prometheus.Gauge

	// Dev registry server
	EndpointResponses *prometheus.CounterVec
}

// New registers the SDK collectors with reg. Passing nil uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result (hit, miss, coalesced, stale)",
		}, []string{"result"}),
		CacheLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_loads_total",
			Help:      "Cache loader invocations by status",
		}, []string{"status"}),
		CacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries removed by invalidation or garbage collection",
		}),
		RegistryRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_requests_total",
			Help:      "Requests to the remote contract registry by status code",
		}, []string{"code", "method"}),
		RegistryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "registry_request_duration_seconds",
			Help:      "Latency of remote contract registry requests",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{"code", "method"}),
		HandleResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handle_resolutions_total",
			Help:      "Contract handle requests by path (cached, rebound, resolved, failed)",
		}, []string{"path"}),
		TokenProbes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_standard_probes_total",
			Help:      "Token standard probe results by detected standard",
		}, []string{"standard"}),
		BatchOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_operations_total",
			Help:      "Batch operations by outcome status",
		}, []string{"status"}),
		BatchInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_operations_in_flight",
			Help:      "Batch operations currently running",
		}),
		EndpointResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_responses_total",
			Help:      "The total number of endpoint responses",
		}, []string{"endpoint", "status_code"}),
	}
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheLoad(err error) {
	if m == nil {
		return
	}
	m.CacheLoads.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) CacheEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CacheEvictions.Add(float64(n))
}

func (m *Metrics) HandleResolution(path string) {
	if m == nil {
		return
	}
	m.HandleResolutions.WithLabelValues(path).Inc()
}

func (m *Metrics) TokenProbe(standard string) {
	if m == nil {
		return
	}
	m.TokenProbes.WithLabelValues(standard).Inc()
}

func (m *Metrics) BatchOperation(status string) {
	if m == nil {
		return
	}
	m.BatchOperations.WithLabelValues(status).Inc()
}

func (m *Metrics) BatchStarted() {
	if m == nil {
		return
	}
	m.BatchInFlight.Inc()
}

func (m *Metrics) BatchFinished() {
	if m == nil {
		return
	}
	m.BatchInFlight.Dec()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
