package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run metrics
var (
	// TargetsTotal tracks cleaned targets by mode (directory, fileset) and result
	TargetsTotal *prometheus.CounterVec

	// RunDuration tracks how long a full run takes
	RunDuration prometheus.Histogram

	// LastRunTimestamp records Unix timestamp of last run
	LastRunTimestamp prometheus.Gauge

	// ErrorsTotal tracks errors outside of the removals themselves
	// (audit database, report, metrics output)
	ErrorsTotal prometheus.Counter
)

func initRunMetrics() {
	TargetsTotal = NewCounterVec(
		"targetsweep_targets_total",
		"Total number of targets processed.",
		[]string{"mode", "result"},
	)

	RunDuration = NewDurationHistogram(
		"targetsweep_run_duration_seconds",
		"Duration of runs in seconds.",
	)

	LastRunTimestamp = NewGauge(
		"targetsweep_last_run_timestamp",
		"Timestamp of the last run (Unix epoch seconds).",
	)

	ErrorsTotal = NewCounter(
		"targetsweep_errors_total",
		"Total number of errors not tied to a single entry.",
	)
}

func registerRunMetrics() {
	prometheus.MustRegister(TargetsTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(LastRunTimestamp)
	prometheus.MustRegister(ErrorsTotal)
}

// RecordTarget counts one finished target
func RecordTarget(mode, result string) {
	TargetsTotal.WithLabelValues(mode, result).Inc()
}

// RecordRun updates the duration histogram and the last run timestamp
func RecordRun(started time.Time, d time.Duration) {
	RunDuration.Observe(d.Seconds())
	LastRunTimestamp.Set(float64(started.Unix()))
}
