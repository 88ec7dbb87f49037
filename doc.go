/*
Package fastserver (module reactor-server) provides a shared-nothing, per-worker reactor
HTTP/1.1 server for Go: a fixed pool of workers, each with its own
non-blocking poller, connection state machine, route registry, buffer
pool, and zero-copy response renderer, so that no request ever crosses
a worker boundary or touches another worker's memory.

Features

  - One goroutine per worker, driving every connection it owns through
    a cooperative read -> parse -> handle -> write cycle — no
    goroutine-per-connection, no locks on the request hot path
  - I/O multiplexing via epoll (Linux) or kqueue (macOS)
  - Exact-match and radix-tree-with-params routing
  - Pooled connection buffers and a per-worker date cache for
    zero-copy response rendering
  - Either kernel-level SO_REUSEPORT per-worker listeners or a single
    accept loop distributing connections round-robin across workers
  - Zero-copy static file responses via sendfile(2)
  - A middleware pipeline with built-in panic recovery, CORS, a
    rate limiter, and request IDs
  - Per-worker stats (queue depths, buffer-pool hit rate) surfaced
    through Engine.Stats and an observability report

Quick Start

Basic usage example:

package main

import (
    "github.com/searchktools/reactor-server/core"
    "github.com/searchktools/reactor-server/core/http"
)

func main() {
    engine, err := core.NewEngine(":8080")
    if err != nil {
        panic(err)
    }

    engine.GET("/hello", func(ctx http.Context) {
        ctx.String(200, "Hello, World!")
    })

    engine.GET("/json", func(ctx http.Context) {
        ctx.JSON(200, map[string]string{
            "message": "reactor-server",
            "status":  "running",
        })
    })

    if err := engine.Run(); err != nil {
        panic(err)
    }
}

Modules

The module is organized into several packages:

  - cmd/fastserver: runnable server binary wiring config, the engine,
    and graceful shutdown together
  - config: configuration loading and a live introspection store
  - core: the Engine façade — owns and runs every worker
  - core/http: the per-request Context handed to application handlers
  - core/middleware: a panic-recovering middleware pipeline
  - core/sendfile: zero-copy static file responses
  - core/websocket: the RFC 6455 handshake computation (the framed-
    message transport is not wired in — see DESIGN.md)
  - core/observability: per-handler latency tracking and a combined
    reactor/process stats report
  - internal/httpwire: the Request/Response/Exchange wire types, the
    request parser, response rendering, and the date cache
  - internal/pool: pooled connection buffers and a generic object pool
  - internal/poller: epoll/kqueue non-blocking readiness notification
  - internal/conn: the per-connection state machine
  - internal/router: exact-match and radix-tree-with-params routing
  - internal/reactor: the worker's cooperative scheduler and services
  - internal/accept: per-worker (SO_REUSEPORT) and round-robin
    connection distribution strategies
  - internal/runtimetune: GC tuning presets applied at startup
  - internal/sendfile: the file-descriptor cache and sendfile(2) call
    internal/reactor's writer service uses

For more information, see SPEC_FULL.md and DESIGN.md in this repository.
*/
package fastserver
