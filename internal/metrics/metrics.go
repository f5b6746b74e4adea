// Package metrics provides Prometheus collectors for sync and photo
// upload operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricSyncOperationsTotal   = "scoutpost_sync_operations_total"
	MetricSyncOperationDuration = "scoutpost_sync_operation_duration_seconds"
	MetricPhotoUploadsTotal     = "scoutpost_photo_uploads_total"
	MetricLocalFallbacksTotal   = "scoutpost_local_fallbacks_total"
)

// Operation labels.
const (
	OpInitialize = "initialize"
	OpLoadAll    = "load_all"
	OpSave       = "save"
	OpUpdate     = "update"
	OpDelete     = "delete"
)

// Backend labels.
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// Status labels.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics contains the Prometheus collectors for engine operations.
// All operations are thread-safe.
type Metrics struct {
	opsTotal   *prometheus.CounterVec
	opDuration *prometheus.HistogramVec
	uploads    *prometheus.CounterVec
	fallbacks  prometheus.Counter
}

// New creates a Metrics instance with all collectors initialized. The
// collectors are not registered; call Register to attach them to a
// registry.
func New() *Metrics {
	return &Metrics{
		opsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSyncOperationsTotal,
				Help: "Total sync engine operations by operation, backend, and status",
			},
			[]string{"operation", "backend", "status"},
		),
		opDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricSyncOperationDuration,
				Help:    "Histogram of sync operation duration in seconds by operation",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"operation"},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPhotoUploadsTotal,
				Help: "Total photo upload attempts by status",
			},
			[]string{"status"},
		),
		fallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricLocalFallbacksTotal,
				Help: "Times a remote read failed and the local store answered instead",
			},
		),
	}
}

// Register attaches all collectors to the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.opsTotal, m.opDuration, m.uploads, m.fallbacks} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveOperation records one completed engine operation.
func (m *Metrics) ObserveOperation(operation, backend, status string, elapsed time.Duration) {
	m.opsTotal.WithLabelValues(operation, backend, status).Inc()
	m.opDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveUpload records one photo upload attempt.
func (m *Metrics) ObserveUpload(status string) {
	m.uploads.WithLabelValues(status).Inc()
}

// ObserveFallback records a read-path fallback to the local store.
func (m *Metrics) ObserveFallback() {
	m.fallbacks.Inc()
}
