package config

import (
	"flag"
	"os"
	"runtime"
	"strconv"
)

// Config holds all application configuration: the original
// port/timeout/env fields plus the per-worker reactor settings (worker
// count, SO_REUSEPORT, buffer tiers, queue depths).
type Config struct {
	Port         int
	ReadTimeout  int
	WriteTimeout int
	Env          string

	WorkerCount                int
	ReusePort                  bool
	ListenBacklog              int
	ConnectionBufferSize       int
	HandshakeBufferSize        int
	ReadyResponseQueueCapacity int
	ServiceQueueCapacity       int
	IdleTimeoutSeconds         int
	Verbose                    bool
}

// New loads configuration from flags, overridable by environment
// variables.
func New() *Config {
	cfg := &Config{}

	flag.IntVar(&cfg.Port, "port", 8080, "HTTP server port")
	flag.IntVar(&cfg.ReadTimeout, "read-timeout", 10, "HTTP read timeout (seconds)")
	flag.IntVar(&cfg.WriteTimeout, "write-timeout", 30, "HTTP write timeout (seconds)")
	flag.StringVar(&cfg.Env, "env", "development", "Environment (development/production)")

	flag.IntVar(&cfg.WorkerCount, "workers", runtime.NumCPU(), "number of reactor workers")
	flag.BoolVar(&cfg.ReusePort, "reuse-port", true, "bind one SO_REUSEPORT listener per worker instead of a shared round-robin acceptor")
	flag.IntVar(&cfg.ListenBacklog, "listen-backlog", 1024, "TCP listen backlog")
	flag.IntVar(&cfg.ConnectionBufferSize, "conn-buffer-size", 8192, "per-connection read/write buffer size in bytes")
	flag.IntVar(&cfg.HandshakeBufferSize, "handshake-buffer-size", 4096, "reserved handshake buffer size in bytes")
	flag.IntVar(&cfg.ReadyResponseQueueCapacity, "ready-response-queue-capacity", 64, "bounded ready-response queue depth per connection")
	flag.IntVar(&cfg.ServiceQueueCapacity, "service-queue-capacity", 4096, "bounded queue depth per worker Service")
	flag.IntVar(&cfg.IdleTimeoutSeconds, "idle-timeout", 90, "idle connection timeout in seconds")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose per-connection logging")

	flag.Parse()

	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			cfg.Port = n
		}
	}
	if workers := os.Getenv("WORKER_COUNT"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			cfg.WorkerCount = n
		}
	}

	return cfg
}
