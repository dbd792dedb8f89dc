package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "checkpoint"

// Registry holds all daemon metrics on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	// Lifecycle metrics
	OperationsTotal *prometheus.CounterVec
	Active          prometheus.Gauge

	// Restore metrics
	RestoreTotal      *prometheus.CounterVec
	RestoreBytesTotal prometheus.Counter
	RestoreLogSectors prometheus.Histogram

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with Go and process collectors attached.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Checkpoint lifecycle operations by result",
		}, []string{"op", "result"}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active",
			Help:      "1 while a checkpoint is in progress",
		}),
		RestoreTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restore_total",
			Help:      "Restore runs by outcome",
		}, []string{"outcome"}),
		RestoreBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restore_bytes_total",
			Help:      "Bytes written back by restores",
		}),
		RestoreLogSectors: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "restore_log_sectors",
			Help:      "Log sectors walked per restore",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Management API requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Management API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		r.OperationsTotal,
		r.Active,
		r.RestoreTotal,
		r.RestoreBytesTotal,
		r.RestoreLogSectors,
		r.RequestsTotal,
		r.RequestDuration,
	)
	return r
}

// Handler returns an HTTP handler exposing this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registerer exposes the registry to components that add their own metrics.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// RecordOperation counts one lifecycle operation.
func (r *Registry) RecordOperation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.OperationsTotal.WithLabelValues(op, result).Inc()
}

// SetActive reports whether a checkpoint is in progress.
func (r *Registry) SetActive(active bool) {
	if active {
		r.Active.Set(1)
		return
	}
	r.Active.Set(0)
}

// RecordRestore counts one restore run.
func (r *Registry) RecordRestore(outcome string, logSectors int, bytes uint64) {
	r.RestoreTotal.WithLabelValues(outcome).Inc()
	r.RestoreBytesTotal.Add(float64(bytes))
	if logSectors > 0 {
		r.RestoreLogSectors.Observe(float64(logSectors))
	}
}

// RecordRequest counts one API request.
func (r *Registry) RecordRequest(method, path, status string, seconds float64) {
	r.RequestsTotal.WithLabelValues(method, path, status).Inc()
	r.RequestDuration.WithLabelValues(method, path).Observe(seconds)
}
