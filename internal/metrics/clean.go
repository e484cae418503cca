package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Deletion engine metrics
var (
	// EntriesRemovedTotal tracks removed entries by kind (file, directory, symlink_file, ...)
	EntriesRemovedTotal *prometheus.CounterVec

	// BytesFreedTotal tracks bytes of regular files removed
	BytesFreedTotal prometheus.Counter

	// FailuresTotal tracks failed removals by failure kind and severity (warning, fatal)
	FailuresTotal *prometheus.CounterVec

	// RetriesTotal tracks removals attempted a second time
	RetriesTotal prometheus.Counter
)

func initCleanMetrics() {
	EntriesRemovedTotal = NewCounterVec(
		"targetsweep_entries_removed_total",
		"Total number of filesystem entries removed.",
		[]string{"kind"},
	)

	BytesFreedTotal = NewBytesCounter(
		"targetsweep_bytes_freed_total",
		"Total bytes freed by removing regular files.",
	)

	FailuresTotal = NewCounterVec(
		"targetsweep_failures_total",
		"Total number of entries that could not be removed.",
		[]string{"kind", "severity"},
	)

	RetriesTotal = NewCounter(
		"targetsweep_retries_total",
		"Total number of removals retried after a failure.",
	)
}

func registerCleanMetrics() {
	prometheus.MustRegister(EntriesRemovedTotal)
	prometheus.MustRegister(BytesFreedTotal)
	prometheus.MustRegister(FailuresTotal)
	prometheus.MustRegister(RetriesTotal)
}
