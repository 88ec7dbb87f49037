// Package conn implements the per-connection state machine: Accepting →
// Open → Closed, with buffer-slot lifecycle, the bounded ready-response
// queue, and the request deque. A Connection is owned by exactly one
// Worker for its entire lifetime; every mutating method here must only
// ever be called from that Worker's scheduler goroutine.
package conn

import (
	"sync/atomic"
	"time"

	"github.com/searchktools/reactor-server/internal/httpwire"
	"github.com/searchktools/reactor-server/internal/pool"
)

// State is one point in the Connection lifecycle.
type State int32

const (
	Accepting State = iota
	Open
	Closed

	// Handshaking is reserved for a future WebSocket upgrade path. It
	// is never entered by the core HTTP/1.1 pipeline — see
	// core/websocket for the disabled upgrade handshake this state
	// would support.
	Handshaking
)

func (s State) String() string {
	switch s {
	case Accepting:
		return "Accepting"
	case Open:
		return "Open"
	case Closed:
		return "Closed"
	case Handshaking:
		return "Handshaking"
	default:
		return "Unknown"
	}
}

// Scheduler is the narrow view of a Worker a Connection needs in order
// to signal its owning Services — "offer the connection to
// RequestHandlerService", "offer the connection to
// ResponseWriterService" — without internal/conn importing
// internal/reactor (which imports internal/conn for the Connection type
// itself).
type Scheduler interface {
	ScheduleRead(c *Connection)
	ScheduleHandler(c *Connection)
	ScheduleWriter(c *Connection)
	Closed(c *Connection)
}

// Connection is one accepted, non-blocking TCP socket and all state the
// reactor needs to drive it through read → parse → handle → write.
type Connection struct {
	FD    int
	state atomic.Int32

	sched Scheduler

	ReadBuf       *pool.Buffer
	WriteBuf      *pool.Buffer
	HandshakeBuf  *pool.Buffer // never populated by the core; reserved

	readyResponses *httpwire.RingOfResponses
	overflow       []*httpwire.Response

	queuedRequests []*httpwire.Exchange

	isReadQueued bool
	isClosed     atomic.Bool
	CloseReason  string

	lastActiveNano atomic.Int64
	KeepAlive      bool
}

// New creates a Connection in the Accepting state for fd, owned by
// sched. readyCapacity is the ready-response queue's bound (64 by
// default — see reactor.DefaultConfig).
func New(fd int, sched Scheduler, readyCapacity int) *Connection {
	c := &Connection{
		FD:             fd,
		sched:          sched,
		readyResponses: httpwire.NewRingOfResponses(readyCapacity),
		KeepAlive:      true,
	}
	c.state.Store(int32(Accepting))
	c.Touch(time.Now())
	return c
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() State { return State(c.state.Load()) }

// Touch records activity for idle-connection reaping.
func (c *Connection) Touch(now time.Time) { c.lastActiveNano.Store(now.UnixNano()) }

// IdleSince reports how long it has been since the last Touch.
func (c *Connection) IdleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastActiveNano.Load()))
}

// MarkOpen transitions Accepting → Open once the socket is registered
// with the selector for read-readiness.
func (c *Connection) MarkOpen() { c.state.Store(int32(Open)) }

// IsReadQueued reports whether this Connection currently sits in
// ConnectionReadService's input queue, preventing double-enqueue on
// repeated readable events.
func (c *Connection) IsReadQueued() bool { return c.isReadQueued }

// SetReadQueued updates the double-enqueue guard.
func (c *Connection) SetReadQueued(v bool) { c.isReadQueued = v }

// IsClosed reports whether the terminal state has been reached.
func (c *Connection) IsClosed() bool { return c.isClosed.Load() }

// Close transitions to Closed exactly once. Subsequent calls are
// no-ops: once isClosed is set, no further reads, writes, or enqueues
// occur, and the selector registration is cancelled exactly once.
func (c *Connection) Close(reason string) {
	if !c.isClosed.CompareAndSwap(false, true) {
		return
	}
	c.state.Store(int32(Closed))
	c.CloseReason = reason

	if c.ReadBuf != nil {
		c.ReadBuf.Release()
		c.ReadBuf = nil
	}
	if c.WriteBuf != nil {
		c.WriteBuf.Release()
		c.WriteBuf = nil
	}
	if c.HandshakeBuf != nil {
		c.HandshakeBuf.Release()
		c.HandshakeBuf = nil
	}

	if c.sched != nil {
		c.sched.Closed(c)
	}
}

// EnqueueExchange appends a parsed request to the per-connection
// request deque. If the deque was empty, the Connection is offered to
// RequestHandlerService. The deque grows unbounded, its size governed
// only by how many requests one peer pipelines on a single connection,
// so Offer-style backpressure is not modeled here — only the
// ready-response path (bounded at 64) needs it.
func (c *Connection) EnqueueExchange(ex *httpwire.Exchange) {
	wasEmpty := len(c.queuedRequests) == 0
	c.queuedRequests = append(c.queuedRequests, ex)
	if wasEmpty && c.sched != nil {
		c.sched.ScheduleHandler(c)
	}
}

// NextExchange pops the oldest queued request, FIFO.
func (c *Connection) NextExchange() (*httpwire.Exchange, bool) {
	if len(c.queuedRequests) == 0 {
		return nil, false
	}
	ex := c.queuedRequests[0]
	c.queuedRequests[0] = nil
	c.queuedRequests = c.queuedRequests[1:]
	return ex, true
}

// HasQueuedExchanges reports whether requests remain to be handled.
func (c *Connection) HasQueuedExchanges() bool { return len(c.queuedRequests) > 0 }

// AppendResponse implements httpwire.ConnectionHandle. It is the
// handler contract's single required call per exchange.
//
// Offer is attempted first against the bounded ready-response ring; a
// response that doesn't fit falls back onto the unbounded overflow
// list instead of blocking the worker's single goroutine.
// ResponseWriterService drains overflow back into the ready queue as
// slots free up (see PopResponse/drainOverflow). The scheduler is woken
// only when Offer succeeds and the ring was empty beforehand — a
// response landing in overflow doesn't need a wake, since the
// connection is already scheduled onto the writer (that's precisely
// why the ring was full).
func (c *Connection) AppendResponse(resp *httpwire.Response) {
	if c.IsClosed() {
		return
	}
	if len(c.overflow) > 0 {
		c.overflow = append(c.overflow, resp)
		return
	}

	wasEmpty := c.readyResponses.Empty()
	if c.readyResponses.Offer(resp) {
		if wasEmpty && c.sched != nil {
			c.sched.ScheduleWriter(c)
		}
		return
	}
	c.overflow = append(c.overflow, resp)
}

// HasReadyResponses reports whether a response is ready to render.
func (c *Connection) HasReadyResponses() bool { return !c.readyResponses.Empty() }

// PeekResponse returns the next response to render without removing it
// — ResponseWriterService needs it in hand while attempting to render,
// since a render can fail (buffer too small) and must leave the
// response queued for the next attempt.
func (c *Connection) PeekResponse() (*httpwire.Response, bool) {
	return c.readyResponses.Peek()
}

// PopResponse removes the response most recently returned by
// PeekResponse, and drains one queued overflow response back in if the
// queue had room.
func (c *Connection) PopResponse() {
	c.readyResponses.Pop()
	c.drainOverflow()
}

func (c *Connection) drainOverflow() {
	for len(c.overflow) > 0 {
		if !c.readyResponses.Offer(c.overflow[0]) {
			return
		}
		c.overflow = c.overflow[1:]
	}
}
