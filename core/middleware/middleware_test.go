package middleware

import (
	"testing"
	"time"

	"github.com/searchktools/reactor-server/core/http"
	"github.com/searchktools/reactor-server/internal/httpwire"
)

type fakeConn struct{}

func (fakeConn) AppendResponse(*httpwire.Response) {}

func newCtx(method, path string) http.Context {
	req := httpwire.NewRequest()
	req.Method = method
	req.Path = path
	ex := &httpwire.Exchange{Request: req, Conn: fakeConn{}}
	return http.Acquire(ex, nil)
}

func TestPipelineBasic(t *testing.T) {
	pipeline := NewPipeline()

	executed := false
	pipeline.Use(func(ctx http.Context) { executed = true })

	ctx := newCtx("GET", "/")
	defer http.Release(ctx)

	pipeline.Execute(ctx, func(http.Context) {})

	if !executed {
		t.Error("middleware was not executed")
	}
}

func TestPipelineAbort(t *testing.T) {
	pipeline := NewPipeline()

	middleware1Executed := false
	middleware2Executed := false
	finalExecuted := false

	pipeline.Use(func(ctx http.Context) {
		middleware1Executed = true
		ctx.Abort()
	})
	pipeline.Use(func(ctx http.Context) {
		middleware2Executed = true
	})

	ctx := newCtx("GET", "/")
	defer http.Release(ctx)

	pipeline.Execute(ctx, func(http.Context) { finalExecuted = true })

	if !middleware1Executed {
		t.Error("middleware 1 should be executed")
	}
	if middleware2Executed {
		t.Error("middleware 2 should not be executed after abort")
	}
	if finalExecuted {
		t.Error("final handler should not be executed after abort")
	}
}

func TestPipelineOrder(t *testing.T) {
	pipeline := NewPipeline()

	var order []int
	pipeline.Use(func(http.Context) { order = append(order, 1) })
	pipeline.Use(func(http.Context) { order = append(order, 2) })
	pipeline.Use(func(http.Context) { order = append(order, 3) })

	ctx := newCtx("GET", "/")
	defer http.Release(ctx)

	pipeline.Execute(ctx, func(http.Context) { order = append(order, 4) })

	expected := []int{1, 2, 3, 4}
	if len(order) != len(expected) {
		t.Fatalf("expected %d executions, got %d", len(expected), len(order))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Errorf("expected order[%d] = %d, got %d", i, v, order[i])
		}
	}
}

func TestPipelineRecoversPanic(t *testing.T) {
	pipeline := NewPipeline()

	ctx := newCtx("GET", "/")
	defer http.Release(ctx)

	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Execute should recover a handler panic, got: %v", r)
			}
		}()
		pipeline.Execute(ctx, func(http.Context) { panic("test panic") })
	}()

	if !ctx.IsAborted() {
		t.Error("Execute should abort the chain after catching a panic")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	middleware := RequestID()
	ctx := newCtx("GET", "/")
	defer http.Release(ctx)

	middleware(ctx) // must not panic
}

func TestRateLimiter(t *testing.T) {
	limiter := RateLimiter(2)

	ctx1 := newCtx("GET", "/")
	defer http.Release(ctx1)
	limiter(ctx1)
	if ctx1.IsAborted() {
		t.Error("first request should not be rate limited")
	}

	ctx2 := newCtx("GET", "/")
	defer http.Release(ctx2)
	limiter(ctx2)
	if ctx2.IsAborted() {
		t.Error("second request should not be rate limited")
	}

	ctx3 := newCtx("GET", "/")
	defer http.Release(ctx3)
	limiter(ctx3)
	if !ctx3.IsAborted() {
		t.Error("third request should be rate limited")
	}

	time.Sleep(1100 * time.Millisecond)

	ctx4 := newCtx("GET", "/")
	defer http.Release(ctx4)
	limiter(ctx4)
	if ctx4.IsAborted() {
		t.Error("request after refill should not be rate limited")
	}
}

func BenchmarkPipeline(b *testing.B) {
	pipeline := NewPipeline()
	pipeline.Use(func(http.Context) {})
	pipeline.Use(func(http.Context) {})
	pipeline.Use(func(http.Context) {})
	pipeline.Compile()

	ctx := newCtx("GET", "/")
	defer http.Release(ctx)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pipeline.Execute(ctx, func(http.Context) {})
	}
}

func BenchmarkRequestIDMiddleware(b *testing.B) {
	middleware := RequestID()
	ctx := newCtx("GET", "/")
	defer http.Release(ctx)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		middleware(ctx)
	}
}

func BenchmarkRateLimiter(b *testing.B) {
	middleware := RateLimiter(1000000)
	ctx := newCtx("GET", "/")
	defer http.Release(ctx)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		middleware(ctx)
	}
}
