// Package metric provides Prometheus metrics for the checkpoint daemon.
//
//   - prometheus.go: registry, lifecycle counters and the HTTP handler
//   - collector.go: scrape-time collector for the checkpoint state
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
