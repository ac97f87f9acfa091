package debug

// Goroutine logger started only when config.Debug is true. A leaked scan
// worker or surface pump shows up as a goroutine count that keeps growing
// across open/close cycles.

import (
	"log/slog"
	"runtime/metrics"
	"time"
)

var goroutineSamples = []string{
	"/sched/goroutines:goroutines",
	"/memory/classes/heap/stacks:bytes",
	"/memory/classes/os-stacks:bytes",
}

// StartGoroutineLogger launches a ticker that logs goroutine count and
// stack memory at interval.
func StartGoroutineLogger(interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		samples := make([]metrics.Sample, len(goroutineSamples))
		for i, name := range goroutineSamples {
			samples[i].Name = name
		}
		var peak uint64
		for range t.C {
			metrics.Read(samples)
			goroutines := sampleUint(samples[0])
			if goroutines > peak {
				peak = goroutines
			}
			logger.Info("goroutine-stacks",
				slog.Uint64("goroutines", goroutines),
				slog.Uint64("goroutines_peak", peak),
				slog.Uint64("stack_heap", sampleUint(samples[1])),
				slog.Uint64("stack_os", sampleUint(samples[2])),
			)
		}
	}()
}

func sampleUint(s metrics.Sample) uint64 {
	if s.Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return s.Value.Uint64()
}
