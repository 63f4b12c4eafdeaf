// Package footprint reports the resource usage of a running crawl.
package footprint

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/bool64/ctxd"
)

// DefaultInterval is the default time between two reports.
const DefaultInterval = time.Second

// Gauge is a named value that is read on every report, like the number of in-flight fetches.
type Gauge struct {
	Name  string
	Value func() any
}

// Track writes the memory usage and the gauges to the debug log at every interval until the context is done.
func Track(ctx context.Context, log ctxd.Logger, interval time.Duration, gauges ...Gauge) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			log.Debug(ctx, "resource usage", Report(gauges...)...)
		}
	}
}

// Report returns the memory usage and the gauges as key-value pairs.
func Report(gauges ...Gauge) []any {
	// See: https://golang.org/pkg/runtime/#MemStats
	var m runtime.MemStats

	runtime.ReadMemStats(&m)

	kv := []any{
		"alloc_mb", formatB(m.Alloc),
		"total_alloc_mb", formatB(m.TotalAlloc),
		"sys_mb", formatB(m.Sys),
		"num_gc", m.NumGC,
		"num_goroutine", runtime.NumGoroutine(),
	}

	for _, g := range gauges {
		kv = append(kv, g.Name, g.Value())
	}

	return kv
}

func formatB(b uint64) string {
	return fmt.Sprintf("%dMiB", b/1024/1024) // nolint: gomnd // bytes conversion.
}
