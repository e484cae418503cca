package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var initOnce sync.Once

// Init initializes all metrics subsystems and registers them with Prometheus
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		initCleanMetrics()
		initRunMetrics()

		registerCleanMetrics()
		registerRunMetrics()

		// Present in the textfile even before the first run
		LastRunTimestamp.Set(0)
		ErrorsTotal.Add(0)
	})
}

// WriteTextfile writes the default registry in the text exposition format
// for the node_exporter textfile collector. The file is replaced atomically.
func WriteTextfile(path string) error {
	Init()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		ErrorsTotal.Inc()
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
