// Command fastserver is the server entry point: load config, build an
// Engine, register routes, run until a shutdown signal arrives, then
// drain every worker before exiting.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/searchktools/reactor-server/config"
	"github.com/searchktools/reactor-server/core"
	"github.com/searchktools/reactor-server/core/http"
	"github.com/searchktools/reactor-server/core/middleware"
	"github.com/searchktools/reactor-server/core/observability"
	"github.com/searchktools/reactor-server/internal/accept"
	"github.com/searchktools/reactor-server/internal/reactor"
	"github.com/searchktools/reactor-server/internal/runtimetune"
)

func main() {
	cfg := config.New()

	runtimetune.Apply(runtimetune.HighThroughput())

	observatory := observability.NewObservatory()

	opts := core.Options{
		WorkerCount: cfg.WorkerCount,
		ReusePort:   cfg.ReusePort,
		Listen: accept.Config{
			Address:       fmt.Sprintf(":%d", cfg.Port),
			ReusePort:     cfg.ReusePort,
			ListenBacklog: cfg.ListenBacklog,
		},
		Worker: reactor.Config{
			ServerName:                 "fastserver",
			ConnectionBufferSize:       cfg.ConnectionBufferSize,
			HandshakeBufferSize:        cfg.HandshakeBufferSize,
			ReadyResponseQueueCapacity: cfg.ReadyResponseQueueCapacity,
			ServiceQueueCapacity:       cfg.ServiceQueueCapacity,
			IdleTimeout:                time.Duration(cfg.IdleTimeoutSeconds) * time.Second,
			SelectorTimeout:            100 * time.Millisecond,
			Verbose:                    cfg.Verbose,
		},
		Observatory: observatory,
	}

	engine, err := core.NewEngineWithOptions(opts)
	if err != nil {
		log.Fatalf("fastserver: building engine: %v", err)
	}

	engine.Use(middleware.RequestID())
	if cfg.Verbose {
		engine.Use(middleware.Logger())
	}

	manager := buildConfigManager(cfg)
	registerRoutes(engine, manager, observatory)

	go awaitShutdownSignal(engine)

	log.Printf("fastserver: starting on port %d [%s], %d workers, reuse_port=%v",
		cfg.Port, cfg.Env, cfg.WorkerCount, cfg.ReusePort)

	if err := engine.Run(); err != nil {
		log.Fatalf("fastserver: server exited: %v", err)
	}
}

// buildConfigManager snapshots the effective runtime configuration into
// a config.Manager, which serves as a live introspection store for
// /debug/config. Handler registration itself is broadcast directly
// through reactor.Worker.RegisterURLHandler(s) rather than routed
// through the manager, since that would mean marshaling handler values
// through a generic key/value store for no benefit.
func buildConfigManager(cfg *config.Config) *config.Manager {
	m := config.NewManager()
	m.Set("port", cfg.Port)
	m.Set("env", cfg.Env)
	m.Set("worker_count", cfg.WorkerCount)
	m.Set("reuse_port", cfg.ReusePort)
	m.Set("listen_backlog", cfg.ListenBacklog)
	m.Set("connection_buffer_size", cfg.ConnectionBufferSize)
	m.Set("handshake_buffer_size", cfg.HandshakeBufferSize)
	m.Set("ready_response_queue_capacity", cfg.ReadyResponseQueueCapacity)
	m.Set("service_queue_capacity", cfg.ServiceQueueCapacity)
	m.Set("idle_timeout_seconds", cfg.IdleTimeoutSeconds)
	m.Set("verbose", cfg.Verbose)
	return m
}

// registerRoutes wires a handful of built-in routes so the binary is
// runnable out of the box; application-specific routes belong in a
// real deployment's own main package, following this one as a template.
func registerRoutes(engine *core.Engine, manager *config.Manager, observatory *observability.Observatory) {
	engine.GET("/", func(ctx http.Context) {
		ctx.String(200, "fastserver is running")
	})

	engine.GET("/healthz", func(ctx http.Context) {
		ctx.Success(nil)
	})

	engine.GET("/debug/config", func(ctx http.Context) {
		ctx.JSON(200, manager.GetAll())
	})

	engine.GET("/debug/observability", func(ctx http.Context) {
		ctx.String(200, observatory.GetFullReport(engine.Stats()))
	})
}

// awaitShutdownSignal blocks for SIGINT/SIGTERM, then asks the engine
// to drain every worker before the process exits.
func awaitShutdownSignal(engine *core.Engine) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("fastserver: signal %v received, draining workers...", sig)

	engine.Shutdown()
	log.Printf("fastserver: shutdown complete")
	os.Exit(0)
}
