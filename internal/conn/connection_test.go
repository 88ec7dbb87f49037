package conn

import (
	"testing"

	"github.com/searchktools/reactor-server/internal/httpwire"
)

type fakeScheduler struct {
	readScheduled    int
	handlerScheduled int
	writerScheduled  int
	closedCalls      int
}

func (f *fakeScheduler) ScheduleRead(c *Connection)    { f.readScheduled++ }
func (f *fakeScheduler) ScheduleHandler(c *Connection) { f.handlerScheduled++ }
func (f *fakeScheduler) ScheduleWriter(c *Connection)  { f.writerScheduled++ }
func (f *fakeScheduler) Closed(c *Connection)          { f.closedCalls++ }

func TestNewConnectionStartsAccepting(t *testing.T) {
	c := New(5, &fakeScheduler{}, 64)
	if c.State() != Accepting {
		t.Fatalf("expected initial state Accepting, got %v", c.State())
	}
}

func TestMarkOpenTransitionsState(t *testing.T) {
	c := New(5, &fakeScheduler{}, 64)
	c.MarkOpen()
	if c.State() != Open {
		t.Fatalf("expected Open after MarkOpen, got %v", c.State())
	}
}

func TestCloseIsIdempotentAndNotifiesSchedulerOnce(t *testing.T) {
	sched := &fakeScheduler{}
	c := New(5, sched, 64)
	c.MarkOpen()

	c.Close("peer closed")
	c.Close("peer closed again")

	if !c.IsClosed() {
		t.Fatalf("expected connection to be closed")
	}
	if c.State() != Closed {
		t.Fatalf("expected state Closed, got %v", c.State())
	}
	if sched.closedCalls != 1 {
		t.Fatalf("expected scheduler.Closed called exactly once, got %d", sched.closedCalls)
	}
	if c.CloseReason != "peer closed" {
		t.Fatalf("expected first close reason to stick, got %q", c.CloseReason)
	}
}

func TestEnqueueExchangeSchedulesHandlerOnlyOnFirstItem(t *testing.T) {
	sched := &fakeScheduler{}
	c := New(5, sched, 64)

	c.EnqueueExchange(&httpwire.Exchange{})
	c.EnqueueExchange(&httpwire.Exchange{})

	if sched.handlerScheduled != 1 {
		t.Fatalf("expected handler scheduled exactly once on empty->nonempty transition, got %d", sched.handlerScheduled)
	}

	_, ok := c.NextExchange()
	if !ok {
		t.Fatalf("expected an exchange to be present")
	}
	if !c.HasQueuedExchanges() {
		t.Fatalf("expected one exchange still queued")
	}
}

func TestAppendResponseSchedulesWriterOnlyOnFirstItem(t *testing.T) {
	sched := &fakeScheduler{}
	c := New(5, sched, 64)

	c.AppendResponse(httpwire.OK([]byte("a"), ""))
	c.AppendResponse(httpwire.OK([]byte("b"), ""))

	if sched.writerScheduled != 1 {
		t.Fatalf("expected writer scheduled exactly once, got %d", sched.writerScheduled)
	}
	if !c.HasReadyResponses() {
		t.Fatalf("expected ready responses present")
	}
}

func TestAppendResponseOverflowsWhenQueueFullAndDrainsOnPop(t *testing.T) {
	sched := &fakeScheduler{}
	c := New(5, sched, 2)

	c.AppendResponse(httpwire.OK([]byte("1"), ""))
	c.AppendResponse(httpwire.OK([]byte("2"), ""))
	// Queue at capacity 2; this one must overflow rather than being
	// dropped, per spec.md's "never dropped" BufferPressure handling.
	c.AppendResponse(httpwire.OK([]byte("3"), ""))

	if len(c.overflow) != 1 {
		t.Fatalf("expected exactly one response parked in overflow, got %d", len(c.overflow))
	}

	r, ok := c.PeekResponse()
	if !ok || string(r.Body) != "1" {
		t.Fatalf("expected to peek response 1 first, got %+v", r)
	}
	c.PopResponse()

	r2, ok := c.PeekResponse()
	if !ok || string(r2.Body) != "2" {
		t.Fatalf("expected response 2 next, got %+v", r2)
	}
	c.PopResponse()

	r3, ok := c.PeekResponse()
	if !ok || string(r3.Body) != "3" {
		t.Fatalf("expected overflowed response 3 to have drained into the ready queue, got %+v", r3)
	}
}

func TestAppendResponseIsNoOpAfterClose(t *testing.T) {
	sched := &fakeScheduler{}
	c := New(5, sched, 64)
	c.Close("shutting down")

	c.AppendResponse(httpwire.OK([]byte("late"), ""))
	if c.HasReadyResponses() {
		t.Fatalf("expected no responses to be accepted after close")
	}
}
