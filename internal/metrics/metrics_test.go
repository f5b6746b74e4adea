package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegister(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()

	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	// Registering the same collectors twice must fail.
	if err := m.Register(reg); err == nil {
		t.Error("duplicate registration must be rejected")
	}
}

func TestObserveOperation(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatal(err)
	}

	m.ObserveOperation(OpSave, BackendRemote, StatusSuccess, 50*time.Millisecond)
	m.ObserveOperation(OpSave, BackendRemote, StatusSuccess, 75*time.Millisecond)
	m.ObserveOperation(OpSave, BackendLocal, StatusFailure, 10*time.Millisecond)

	expected := strings.NewReader(`
# HELP scoutpost_sync_operations_total Total sync engine operations by operation, backend, and status
# TYPE scoutpost_sync_operations_total counter
scoutpost_sync_operations_total{backend="local",operation="save",status="failure"} 1
scoutpost_sync_operations_total{backend="remote",operation="save",status="success"} 2
`)
	if err := testutil.GatherAndCompare(reg, expected, MetricSyncOperationsTotal); err != nil {
		t.Errorf("unexpected counter state: %v", err)
	}
}

func TestObserveUploadAndFallback(t *testing.T) {
	m := New()

	m.ObserveUpload(StatusSuccess)
	m.ObserveUpload(StatusSuccess)
	m.ObserveUpload(StatusFailure)
	m.ObserveFallback()

	if got := testutil.ToFloat64(m.uploads.WithLabelValues(StatusSuccess)); got != 2 {
		t.Errorf("upload successes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.uploads.WithLabelValues(StatusFailure)); got != 1 {
		t.Errorf("upload failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.fallbacks); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
}
