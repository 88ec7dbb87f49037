package observability

import (
	"fmt"
	"runtime"

	"github.com/searchktools/reactor-server/internal/reactor"
)

// Observatory is the central observability hub: per-handler latency
// from PerformanceMonitor plus a live snapshot of every reactor
// worker's queue depths and buffer-pool usage, assembled into one
// report.
type Observatory struct {
	Monitor *PerformanceMonitor
	enabled bool
}

// NewObservatory creates a new observatory.
func NewObservatory() *Observatory {
	return &Observatory{
		Monitor: NewPerformanceMonitor(),
		enabled: true,
	}
}

// TraceHandler wraps a handler invocation with latency/error tracking.
func (o *Observatory) TraceHandler(name string, fn func() error) error {
	if !o.enabled {
		return fn()
	}

	startTime := o.Monitor.StartTrace()
	err := fn()
	o.Monitor.EndTrace(name, startTime, err != nil)
	return err
}

// GetFullReport renders handler bottlenecks, per-worker reactor stats,
// and process memory stats into one text report — the shape
// cmd/fastserver's /debug/observability route returns.
func (o *Observatory) GetFullReport(workers []reactor.Stats) string {
	report := "Server Observatory\n\n"

	report += "Handler Performance:\n"
	bottlenecks := o.Monitor.GetBottlenecks()
	if len(bottlenecks) == 0 {
		report += "  no bottlenecks detected\n"
	} else {
		report += fmt.Sprintf("  %d bottlenecks detected:\n", len(bottlenecks))
		for i, b := range bottlenecks {
			report += fmt.Sprintf("    %d. [%s] %s - %s (severity: %d/10)\n",
				i+1, b.Type, b.Location, b.Details, b.Severity)
		}
	}
	report += "\n"

	report += "Reactor Workers:\n"
	for i, s := range workers {
		report += fmt.Sprintf(
			"  worker %d: conns=%d read_q=%d handler_q=%d writer_q=%d pool_hit_rate=%.1f%% pool_in_use=%d\n",
			i, s.ActiveConnections, s.ReadQueueDepth, s.HandlerQueueDepth, s.WriterQueueDepth,
			s.BufferPool.HitRate*100, s.BufferPool.InUse,
		)
	}
	report += "\n"

	report += "System Metrics:\n"
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	report += fmt.Sprintf("  heap_alloc_mb=%d heap_objects=%d gc_runs=%d goroutines=%d\n",
		m.HeapAlloc/(1024*1024), m.HeapObjects, m.NumGC, runtime.NumGoroutine())

	return report
}

// Enable turns monitoring back on.
func (o *Observatory) Enable() {
	o.enabled = true
	o.Monitor.enabled.Store(true)
}

// Disable turns monitoring off; TraceHandler becomes a passthrough.
func (o *Observatory) Disable() {
	o.enabled = false
	o.Monitor.enabled.Store(false)
}
