package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// SaleStoreMetrics records Sale Store calls and the errors surfaced on the
// error channel.
type SaleStoreMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	reported   *prometheus.CounterVec
}

// NewSaleStoreMetrics registers the store metrics on the provided registerer.
func NewSaleStoreMetrics(reg prometheus.Registerer) *SaleStoreMetrics {
	if reg == nil {
		return &SaleStoreMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_store_operations_total",
		Help: "Sale Store operations by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sale_store_operation_duration_seconds",
		Help:    "Duration of Sale Store operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reported := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_store_errors_reported_total",
		Help: "Store errors published on the error channel.",
	}, []string{"operation"})
	reg.MustRegister(operations, duration, reported)
	return &SaleStoreMetrics{
		operations: operations,
		duration:   duration,
		reported:   reported,
	}
}

// Observe records one finished operation.
func (m *SaleStoreMetrics) Observe(operation string, started time.Time, err error) {
	if m == nil || m.operations == nil {
		return
	}
	op := normalizeLabel(operation)
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// IncReported increments the error channel counter for operation.
func (m *SaleStoreMetrics) IncReported(operation string) {
	if m == nil || m.reported == nil {
		return
	}
	m.reported.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
