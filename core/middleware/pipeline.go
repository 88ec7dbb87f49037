// Package middleware is a zero-allocation middleware pipeline over
// core/http.Context.
package middleware

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/searchktools/reactor-server/core/http"
)

// HandlerFunc is the signature for middleware handlers.
type HandlerFunc func(http.Context)

// Pipeline is a middleware chain executed in registration order, with
// early exit once a handler calls ctx.Abort().
type Pipeline struct {
	handlers []HandlerFunc
	length   int
}

// NewPipeline creates an empty Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{handlers: make([]HandlerFunc, 0, 16)}
}

// Use appends a middleware to the pipeline.
func (p *Pipeline) Use(handler HandlerFunc) *Pipeline {
	p.handlers = append(p.handlers, handler)
	p.length = len(p.handlers)
	return p
}

// Execute runs every middleware in order, then finalHandler, stopping
// early if any middleware calls ctx.Abort(). A panic anywhere in the
// chain is recovered here and turned into a 500: recovery is a property
// of Execute itself, not an opt-in middleware, since a defer/recover
// installed inside a middleware function only guards that function's
// own body, not whatever runs after it returns.
func (p *Pipeline) Execute(ctx http.Context, finalHandler HandlerFunc) {
	defer func() {
		if err := recover(); err != nil {
			log.Printf("middleware: panic recovered: %v", err)
			if !ctx.IsAborted() {
				ctx.Abort()
				ctx.JSON(500, map[string]any{"error": "Internal Server Error"})
			}
		}
	}()

	if p.length == 0 {
		finalHandler(ctx)
		return
	}

	for i := 0; i < p.length; i++ {
		p.handlers[i](ctx)
		if ctx.IsAborted() {
			return
		}
	}

	if !ctx.IsAborted() {
		finalHandler(ctx)
	}
}

// Compile pre-sizes the handler slice exactly, avoiding the spare
// append capacity NewPipeline reserves — call once route registration
// is done and no more Use calls are expected.
func (p *Pipeline) Compile() *Pipeline {
	if p.length <= 1 {
		return p
	}
	compiled := make([]HandlerFunc, p.length)
	copy(compiled, p.handlers)
	p.handlers = compiled
	return p
}

// Common middleware implementations, built against Context.

// Logger logs the method and path of every request.
func Logger() HandlerFunc {
	return func(ctx http.Context) {
		log.Printf("[%s] %s", ctx.Method(), ctx.Path())
	}
}

// CORS adds permissive CORS headers and short-circuits preflight
// OPTIONS requests with a 204.
func CORS() HandlerFunc {
	return func(ctx http.Context) {
		ctx.SetHeader("Access-Control-Allow-Origin", "*")
		ctx.SetHeader("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		ctx.SetHeader("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if ctx.Method() == "OPTIONS" {
			ctx.Abort()
			ctx.Status(204)
		}
	}
}

// RateLimiter implements a simple per-second token bucket. An Engine
// has one Pipeline that wraps the handlers of every worker, so a single
// bucket, guarded by a mutex, is shared by all connections on all of
// that Engine's workers.
func RateLimiter(requestsPerSecond int) HandlerFunc {
	var (
		tokens     int
		lastRefill time.Time
		mu         sync.Mutex
	)

	tokens = requestsPerSecond
	lastRefill = time.Now()

	return func(ctx http.Context) {
		mu.Lock()

		now := time.Now()
		if now.Sub(lastRefill) > time.Second {
			tokens = requestsPerSecond
			lastRefill = now
		}

		if tokens > 0 {
			tokens--
			mu.Unlock()
			return
		}
		mu.Unlock()

		ctx.Abort()
		ctx.JSON(429, map[string]any{"error": "Too Many Requests"})
	}
}

// RequestID stamps every request with a monotonically increasing ID.
func RequestID() HandlerFunc {
	var counter uint64
	return func(ctx http.Context) {
		id := atomic.AddUint64(&counter, 1)
		ctx.SetHeader("X-Request-ID", fmt.Sprintf("%d", id))
	}
}

// Metrics is a placeholder hook point for request-count/latency
// collection; core/observability's reporter is the real stats source
// (per-worker queue depths and pool usage), so this just demonstrates
// where a request-scoped counter would plug in.
func Metrics() HandlerFunc {
	return func(ctx http.Context) {
		_ = ctx.Method()
		_ = ctx.Path()
	}
}
