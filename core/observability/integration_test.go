package observability

import (
	"errors"
	"strings"
	"testing"

	"github.com/searchktools/reactor-server/internal/reactor"
)

func TestObservatoryTraceHandlerRecordsErrors(t *testing.T) {
	o := NewObservatory()

	if err := o.TraceHandler("ok-handler", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantErr := errors.New("boom")
	for i := 0; i < 100; i++ {
		o.TraceHandler("bad-handler", func() error { return wantErr })
	}

	// detectBottlenecks normally runs on a 10s ticker; call it directly
	// rather than waiting on the ticker in a test.
	o.Monitor.bottleneckMu.Lock()
	o.Monitor.bottlenecks = o.Monitor.detectBottlenecks()
	o.Monitor.bottleneckMu.Unlock()

	report := o.GetFullReport(nil)
	if !strings.Contains(report, "bad-handler") {
		t.Errorf("expected report to flag bad-handler's error rate, got:\n%s", report)
	}
}

func TestObservatoryGetFullReportIncludesWorkerStats(t *testing.T) {
	o := NewObservatory()
	stats := []reactor.Stats{{ActiveConnections: 3, ReadQueueDepth: 1}}

	report := o.GetFullReport(stats)
	if !strings.Contains(report, "conns=3") {
		t.Errorf("expected report to include worker stats, got:\n%s", report)
	}
}

func TestObservatoryDisableStopsTracing(t *testing.T) {
	o := NewObservatory()
	o.Disable()

	called := false
	o.TraceHandler("noop", func() error { called = true; return nil })
	if !called {
		t.Fatal("handler should still run when observatory is disabled")
	}

	if len(o.Monitor.GetBottlenecks()) != 0 {
		t.Error("expected no bottlenecks to be recorded while disabled")
	}
}
