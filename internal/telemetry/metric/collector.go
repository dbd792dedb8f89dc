package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

// StatusFunc reports the current checkpoint state.
type StatusFunc func() (domain.Status, error)

// Collector exports the checkpoint state at scrape time.
type Collector struct {
	status StatusFunc

	supported     *prometheus.Desc
	recordPresent *prometheus.Desc
	retries       *prometheus.Desc
}

// NewCollector creates a collector backed by status.
func NewCollector(status StatusFunc) *Collector {
	return &Collector{
		status: status,
		supported: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "supported"),
			"1 if any volume is configured for checkpointing", nil, nil),
		recordPresent: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "record_present"),
			"1 if a checkpoint record is persisted", nil, nil),
		retries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "retries_remaining"),
			"Boot attempts left in the checkpoint record (-1 until the slot changes)", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.supported
	ch <- c.recordPresent
	ch <- c.retries
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st, err := c.status()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.recordPresent, err)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.supported, prometheus.GaugeValue, boolValue(st.Supported))
	ch <- prometheus.MustNewConstMetric(c.recordPresent, prometheus.GaugeValue, boolValue(st.RecordPresent))
	if st.RecordPresent {
		if rec, err := domain.ParseRecord(st.Record); err == nil {
			ch <- prometheus.MustNewConstMetric(c.retries, prometheus.GaugeValue, float64(rec.Retry))
		}
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
