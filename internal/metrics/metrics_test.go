package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestMetricsInit verifies that Init() is idempotent and registers metrics
func TestMetricsInit(t *testing.T) {
	Init()
	Init()
	Init()

	if EntriesRemovedTotal == nil {
		t.Error("EntriesRemovedTotal should be initialized")
	}
	if BytesFreedTotal == nil {
		t.Error("BytesFreedTotal should be initialized")
	}
	if FailuresTotal == nil {
		t.Error("FailuresTotal should be initialized")
	}
	if RetriesTotal == nil {
		t.Error("RetriesTotal should be initialized")
	}
	if TargetsTotal == nil || RunDuration == nil || LastRunTimestamp == nil || ErrorsTotal == nil {
		t.Error("run metrics should be initialized")
	}

	// Vectors only show up once a label set exists
	EntriesRemovedTotal.WithLabelValues("file").Add(0)
	FailuresTotal.WithLabelValues("io_error", "warning").Add(0)
	TargetsTotal.WithLabelValues("directory", "ok").Add(0)

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	expectedMetrics := []string{
		"targetsweep_entries_removed_total",
		"targetsweep_bytes_freed_total",
		"targetsweep_failures_total",
		"targetsweep_retries_total",
		"targetsweep_targets_total",
		"targetsweep_run_duration_seconds",
		"targetsweep_last_run_timestamp",
		"targetsweep_errors_total",
	}

	foundMetrics := make(map[string]bool)
	for _, mf := range mfs {
		foundMetrics[*mf.Name] = true
	}

	for _, expected := range expectedMetrics {
		if !foundMetrics[expected] {
			t.Errorf("Expected metric %s not found in registry", expected)
		}
	}
}

// TestHelperFunctions verifies that helper functions create valid metrics
func TestHelperFunctions(t *testing.T) {
	t.Run("NewDurationHistogram", func(t *testing.T) {
		if h := NewDurationHistogram("test_duration", "Test duration metric"); h == nil {
			t.Error("NewDurationHistogram returned nil")
		}
	})

	t.Run("NewBytesCounter", func(t *testing.T) {
		if c := NewBytesCounter("test_bytes", "Test bytes metric"); c == nil {
			t.Error("NewBytesCounter returned nil")
		}
	})

	t.Run("NewCounterVec", func(t *testing.T) {
		if cv := NewCounterVec("test_counter_vec", "Test counter vec metric", []string{"label"}); cv == nil {
			t.Error("NewCounterVec returned nil")
		}
	})

	t.Run("NewGauge", func(t *testing.T) {
		if g := NewGauge("test_gauge", "Test gauge metric"); g == nil {
			t.Error("NewGauge returned nil")
		}
	})
}

// TestRunHelpers verifies run helpers update the registered metrics
func TestRunHelpers(t *testing.T) {
	Init()

	RecordTarget("fileset", "ok")
	RecordTarget("fileset", "failed")

	started := time.Unix(1700000000, 0)
	RecordRun(started, 1500*time.Millisecond)

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "targetsweep_last_run_timestamp" {
			continue
		}
		if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 1700000000 {
			t.Errorf("Expected last run timestamp 1700000000, got %v", got)
		}
		return
	}
	t.Error("targetsweep_last_run_timestamp not gathered")
}

// TestWriteTextfile verifies the textfile is written with our metrics
func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textfile", "sweep.prom")

	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read textfile: %v", err)
	}
	if !strings.Contains(string(data), "targetsweep_retries_total") {
		t.Errorf("textfile missing targetsweep_retries_total:\n%s", data)
	}
}
