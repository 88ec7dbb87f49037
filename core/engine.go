// Package core is the public façade: Engine wires config, the acceptor,
// and a pool of reactor.Worker goroutines into a shared-nothing
// per-worker server. Engine itself runs on no goroutine of its own once
// Run returns the accept loop to the caller's goroutine — every
// connection's entire lifecycle lives inside exactly one Worker.
package core

import (
	"context"
	"fmt"
	"log"
	"runtime"

	"github.com/searchktools/reactor-server/core/http"
	"github.com/searchktools/reactor-server/core/middleware"
	"github.com/searchktools/reactor-server/core/observability"
	"github.com/searchktools/reactor-server/core/sendfile"
	"github.com/searchktools/reactor-server/internal/accept"
	"github.com/searchktools/reactor-server/internal/httpwire"
	"github.com/searchktools/reactor-server/internal/poller"
	"github.com/searchktools/reactor-server/internal/reactor"
	"github.com/searchktools/reactor-server/internal/router"
)

// HandlerFunc is the application-facing handler signature.
type HandlerFunc func(ctx http.Context)

// Options configures Engine construction — the façade translation of
// config.Config into reactor.Config plus accept.Config, kept as its own
// type so callers that don't use config.Config (tests, examples/) can
// build one by hand.
type Options struct {
	WorkerCount int
	ReusePort   bool

	Listen accept.Config
	Worker reactor.Config

	// RouteParams enables the radix/param matching mode in addition to
	// the default exact-match lookup (see internal/router.ModeRadixParams).
	RouteParams bool

	// Observatory, when set, traces every handler invocation's latency
	// and error rate. Optional — a nil Observatory means adapt() skips
	// tracing entirely.
	Observatory *observability.Observatory
}

// DefaultOptions returns sane defaults: one worker per CPU,
// SO_REUSEPORT listeners, and reactor.DefaultConfig's buffer/queue
// sizing.
func DefaultOptions(addr string) Options {
	return Options{
		WorkerCount: runtime.NumCPU(),
		ReusePort:   true,
		Listen: accept.Config{
			Address:       addr,
			ReusePort:     true,
			ListenBacklog: 1024,
		},
		Worker: reactor.DefaultConfig(),
	}
}

// Engine is a pool of independent reactor.Worker goroutines plus the
// acceptor strategy that feeds them. Registering a route broadcasts it
// to every worker's own registerInbound queue; there is no shared,
// locked router.
type Engine struct {
	opts    Options
	workers []*reactor.Worker
	sels    []poller.Poller

	distributor interface {
		Close() error
	}
	perWorker *accept.PerWorkerListeners

	pipeline    *middleware.Pipeline
	observatory *observability.Observatory

	cancel context.CancelFunc
}

// NewEngine creates an Engine with default options bound to addr.
func NewEngine(addr string) (*Engine, error) {
	return NewEngineWithOptions(DefaultOptions(addr))
}

// NewEngineWithOptions creates an Engine from an explicit Options,
// allocating one selector, one Registry, and one reactor.Worker per
// configured worker — each Worker owns its registry and selector
// exclusively; no state crosses a worker boundary.
func NewEngineWithOptions(opts Options) (*Engine, error) {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = runtime.NumCPU()
	}

	mode := router.ModeExact
	if opts.RouteParams {
		mode = router.ModeRadixParams
	}

	e := &Engine{
		opts:        opts,
		pipeline:    middleware.NewPipeline(),
		observatory: opts.Observatory,
	}
	for i := 0; i < opts.WorkerCount; i++ {
		sel, err := poller.New()
		if err != nil {
			e.closeSelectors()
			return nil, fmt.Errorf("core: creating selector for worker %d: %w", i, err)
		}
		e.sels = append(e.sels, sel)
		reg := router.New(mode)
		e.workers = append(e.workers, reactor.New(i, sel, reg, opts.Worker))
	}
	return e, nil
}

func (e *Engine) closeSelectors() {
	for _, sel := range e.sels {
		sel.Close()
	}
}

// GET registers a GET-style route. The exact-match registry binds one
// handler per path with no method dimension, so this — like the rest
// of the verb wrappers below — registers purely by path; two verbs for
// the same path collide on the same handler slot the way a
// single-path, single-handler registry must. Callers that need
// per-method dispatch should branch on ctx.Method() inside the handler.
func (e *Engine) GET(path string, handler HandlerFunc) { e.RegisterURLHandler(path, handler) }

// POST registers a route, sharing GET's path-only caveat above.
func (e *Engine) POST(path string, handler HandlerFunc) { e.RegisterURLHandler(path, handler) }

// PUT registers a route, sharing GET's path-only caveat above.
func (e *Engine) PUT(path string, handler HandlerFunc) { e.RegisterURLHandler(path, handler) }

// DELETE registers a route, sharing GET's path-only caveat above.
func (e *Engine) DELETE(path string, handler HandlerFunc) { e.RegisterURLHandler(path, handler) }

// PATCH registers a route, sharing GET's path-only caveat above.
func (e *Engine) PATCH(path string, handler HandlerFunc) { e.RegisterURLHandler(path, handler) }

// HEAD registers a route, sharing GET's path-only caveat above.
func (e *Engine) HEAD(path string, handler HandlerFunc) { e.RegisterURLHandler(path, handler) }

// OPTIONS registers a route, sharing GET's path-only caveat above.
func (e *Engine) OPTIONS(path string, handler HandlerFunc) { e.RegisterURLHandler(path, handler) }

// RegisterURLHandler broadcasts path/handler to every worker: each
// worker applies the registration on its own goroutine at its next
// scheduler tick, never via a shared lock.
func (e *Engine) RegisterURLHandler(path string, handler HandlerFunc) {
	h := e.adapt(path, handler)
	for _, w := range e.workers {
		w.RegisterURLHandler(path, h)
	}
}

// RegisterURLHandlers is the bulk broadcast variant.
func (e *Engine) RegisterURLHandlers(entries map[string]HandlerFunc) {
	converted := make(map[string]router.HandlerFunc, len(entries))
	for path, handler := range entries {
		converted[path] = e.adapt(path, handler)
	}
	for _, w := range e.workers {
		w.RegisterURLHandlers(converted)
	}
}

// Use appends a global middleware, run for every route ahead of its
// handler. Order follows registration order; see
// core/middleware.Pipeline.Execute for abort/recovery semantics.
func (e *Engine) Use(mw middleware.HandlerFunc) *Engine {
	e.pipeline.Use(mw)
	return e
}

// adapt wraps an application HandlerFunc as a router.HandlerFunc:
// acquires a pooled http.Context, runs it through the Engine's
// middleware pipeline (traced by Observatory when one is configured),
// then releases the Context.
func (e *Engine) adapt(path string, handler HandlerFunc) router.HandlerFunc {
	final := middleware.HandlerFunc(handler)
	return func(ex *httpwire.Exchange) {
		ctx := http.Acquire(ex, ex.Params)
		if e.observatory != nil {
			e.observatory.TraceHandler(path, func() error {
				e.pipeline.Execute(ctx, final)
				return nil
			})
		} else {
			e.pipeline.Execute(ctx, final)
		}
		http.Release(ctx)
	}
}

// Run starts every worker goroutine and the acceptor strategy selected
// by opts.ReusePort, then blocks until the acceptor stops (normally
// never, until Shutdown is called from another goroutine).
func (e *Engine) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	for _, w := range e.workers {
		go w.Run()
	}

	targets := make([]accept.Target, len(e.workers))
	for i, w := range e.workers {
		targets[i] = w
	}

	log.Printf("core: listening on %s with %d workers (reuse_port=%v)",
		e.opts.Listen.Address, len(e.workers), e.opts.ReusePort)

	if e.opts.ReusePort {
		p, err := accept.NewPerWorkerListeners(e.opts.Listen, targets)
		if err != nil {
			return fmt.Errorf("core: starting per-worker listeners: %w", err)
		}
		e.perWorker = p
		p.Run(ctx, targets)
		return nil
	}

	d, err := accept.NewRoundRobin(e.opts.Listen, targets)
	if err != nil {
		return fmt.Errorf("core: starting round-robin listener: %w", err)
	}
	e.distributor = d
	return d.Run(ctx)
}

// Shutdown stops accepting new connections and asks every worker to
// drain in-flight work and exit. It blocks until every worker has
// stopped.
func (e *Engine) Shutdown() {
	if e.cancel != nil {
		e.cancel()
	}
	if e.distributor != nil {
		e.distributor.Close()
	}
	for _, w := range e.workers {
		w.RequestShutdown()
	}
	for _, w := range e.workers {
		<-w.Stopped()
	}
	sendfile.CloseCache()
}

// Stats returns a per-worker load snapshot, consumed by
// core/observability's reporter.
func (e *Engine) Stats() []reactor.Stats {
	stats := make([]reactor.Stats, len(e.workers))
	for i, w := range e.workers {
		stats[i] = w.Stats()
	}
	return stats
}
