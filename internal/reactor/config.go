package reactor

import "time"

// Config is the subset of worker-level configuration the reactor needs,
// independent of how it was loaded — config.Config (flag-based) is
// translated into this at startup by cmd/fastserver.
type Config struct {
	ServerName                 string
	ConnectionBufferSize       int
	HandshakeBufferSize        int
	ReadyResponseQueueCapacity int
	ServiceQueueCapacity       int
	IdleTimeout                time.Duration
	SelectorTimeout            time.Duration
	Verbose                    bool
}

// DefaultConfig returns conservative production defaults: 8KB/4KB buffer
// tiers, generous queue depths, and a 64-deep ready-response queue per
// connection.
func DefaultConfig() Config {
	return Config{
		ServerName:                 "reactor-server",
		ConnectionBufferSize:       8 * 1024,
		HandshakeBufferSize:        4 * 1024,
		ReadyResponseQueueCapacity: 64,
		ServiceQueueCapacity:       4096,
		IdleTimeout:                90 * time.Second,
		SelectorTimeout:            100 * time.Millisecond,
		Verbose:                    false,
	}
}
