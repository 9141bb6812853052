// Package metrics is the Prometheus-backed activity collector for the
// storage engine and the server. A nil *Metrics
// is valid everywhere it's accepted (fss.Collector, server hooks) and
// simply means metrics collection is disabled, matching the optional-
// collector pattern the teacher's cache store uses.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements fss.Collector plus extra hooks for connection, worker
// and request activity. internal/server calls the connection and worker
// hooks; nothing in this repository calls ObserveRequest.
type Metrics struct {
	registry *prometheus.Registry

	evictionsTotal prometheus.Counter
	bytesUsed      prometheus.Gauge
	filesUsed      prometheus.Gauge

	connectionsAccepted prometheus.Counter
	connectionsActive   prometheus.Gauge
	workersBusy         prometheus.Gauge

	requestsTotal    *prometheus.CounterVec
	requestDurations *prometheus.HistogramVec
}

// New returns a *Metrics registered against its own registry, or nil when
// enabled is false. The nil case lets every caller pass the result
// straight into fss.New/server.New without a branch.
func New(enabled bool) *Metrics {
	if !enabled {
		return nil
	}

	reg := prometheus.NewRegistry()
	return &Metrics{
		registry: reg,

		evictionsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fss_evictions_total",
			Help: "Total number of FIFO-skip-locked evictions performed.",
		}),
		bytesUsed: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fss_bytes_used",
			Help: "Current high-water bytes held by the storage engine.",
		}),
		filesUsed: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fss_files_used",
			Help: "Current high-water file count held by the storage engine.",
		}),
		connectionsAccepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fss_connections_accepted_total",
			Help: "Total number of accepted client connections.",
		}),
		connectionsActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fss_connections_active",
			Help: "Current number of open client connections.",
		}),
		workersBusy: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fss_workers_busy",
			Help: "Current number of worker goroutines handling a connection.",
		}),
		requestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "fss_requests_total",
			Help: "Total number of dispatched requests by wire message kind and result.",
		}, []string{"kind", "result"}),
		requestDurations: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name: "fss_request_duration_milliseconds",
			Help: "Request handling latency in milliseconds by wire message kind.",
			Buckets: []float64{
				0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000,
			},
		}, []string{"kind"}),
	}
}

// Handler serves the Prometheus exposition format for this Metrics'
// registry. Returns nil when m is nil.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordEviction implements fss.Collector.
func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.evictionsTotal.Inc()
}

// SetHighWater implements fss.Collector.
func (m *Metrics) SetHighWater(bytesUsed, filesUsed int64) {
	if m == nil {
		return
	}
	m.bytesUsed.Set(float64(bytesUsed))
	m.filesUsed.Set(float64(filesUsed))
}

// ConnectionAccepted records one accepted connection and bumps the
// active-connection gauge.
func (m *Metrics) ConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
	m.connectionsActive.Inc()
}

// ConnectionClosed decrements the active-connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

// WorkerStarted marks one worker as busy handling a connection.
func (m *Metrics) WorkerStarted() {
	if m == nil {
		return
	}
	m.workersBusy.Inc()
}

// WorkerFinished marks a worker as idle again.
func (m *Metrics) WorkerFinished() {
	if m == nil {
		return
	}
	m.workersBusy.Dec()
}

// ObserveRequest records one dispatched request's outcome and latency.
func (m *Metrics) ObserveRequest(kind, result string, durationMs float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(kind, result).Inc()
	m.requestDurations.WithLabelValues(kind).Observe(durationMs)
}
