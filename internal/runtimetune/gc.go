// Package runtimetune applies process-wide GC tuning at startup. A
// per-worker reactor has no per-connection pool churn for the tuning to
// offset (each Connection lives inside its owning Worker's map for its
// whole lifetime), but the fixed-size Buffer/Request pools in
// internal/pool still benefit from a less aggressive collector under
// sustained load.
package runtimetune

import (
	"runtime"
	"runtime/debug"
)

// GCConfig holds the GC tuning knobs Apply installs.
type GCConfig struct {
	// GOGC sets the garbage collection target percentage; the stdlib
	// default is 100.
	GOGC int
	// MemoryLimit sets a soft memory limit in bytes; 0 disables it.
	MemoryLimit int64
	// MinRetainExtra is extra memory force-allocated once at startup to
	// establish a baseline heap size, reducing early GC churn.
	MinRetainExtra int64
}

// HighThroughput returns a "very infrequent GC" profile, applied by
// cmd/fastserver at startup.
func HighThroughput() GCConfig {
	return GCConfig{GOGC: 300, MinRetainExtra: 100 << 20}
}

// LowLatency trades GC frequency for shorter individual pauses.
func LowLatency() GCConfig {
	return GCConfig{GOGC: 150, MinRetainExtra: 30 << 20}
}

// Apply installs cfg process-wide.
func Apply(cfg GCConfig) {
	if cfg.GOGC > 0 {
		debug.SetGCPercent(cfg.GOGC)
	}
	if cfg.MemoryLimit > 0 {
		debug.SetMemoryLimit(cfg.MemoryLimit)
	}
	if cfg.MinRetainExtra > 0 {
		runtime.GC()
		_ = make([]byte, cfg.MinRetainExtra)
	}
}
