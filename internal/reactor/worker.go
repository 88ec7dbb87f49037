// Package reactor is the worker runtime: the cooperative scheduler
// (Worker) and its four HTTP pipeline Services, in data-flow order:
// ConnectionAcceptService, ConnectionReadService, RequestHandlerService,
// ResponseWriterService.
package reactor

import (
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/reactor-server/internal/conn"
	"github.com/searchktools/reactor-server/internal/httpwire"
	"github.com/searchktools/reactor-server/internal/pool"
	"github.com/searchktools/reactor-server/internal/poller"
	"github.com/searchktools/reactor-server/internal/queue"
	"github.com/searchktools/reactor-server/internal/router"
)

// Worker owns one OS thread's worth of work: a selector, a ready-task
// queue per Service, and the set of Connections it exclusively
// controls. There is no locking inside a Worker — every mutating method
// is only ever called from the goroutine running Run.
type Worker struct {
	ID int

	cfg      Config
	sel      poller.Poller
	registry *router.Registry

	connBufPool     *pool.Pool
	handshakeBufPool *pool.Pool
	requestPool     *pool.ObjectPool[httpwire.Request]
	dateCache       *httpwire.DateCache

	commonHeaders []byte

	connections map[int]*conn.Connection

	// acceptInbound carries raw fds handed off by the acceptor strategy
	// (internal/accept), which runs on its own goroutine — the one
	// queue in this package where a real blocking Send is safe, since
	// the producer is not this Worker's own goroutine.
	acceptInbound *queue.Queue[int]

	readQ    *queue.Queue[*conn.Connection]
	handlerQ *queue.Queue[*conn.Connection]
	writerQ  *queue.Queue[*conn.Connection]

	registerInbound *queue.Queue[registerMsg]

	activeConnections  atomic.Int64
	pendingConnections atomic.Int64

	shuttingDown atomic.Bool
	done         chan struct{}
}

type registerMsg struct {
	path    string
	handler router.HandlerFunc
	all     map[string]router.HandlerFunc
}

// New creates a Worker. sel must be freshly created and not yet shared
// with any other Worker — each Worker owns exactly one selector.
func New(id int, sel poller.Poller, registry *router.Registry, cfg Config) *Worker {
	w := &Worker{
		ID:               id,
		cfg:              cfg,
		sel:              sel,
		registry:         registry,
		connBufPool:      pool.New(cfg.ConnectionBufferSize),
		handshakeBufPool: pool.New(cfg.HandshakeBufferSize),
		dateCache:        httpwire.NewDateCache(),
		connections:      make(map[int]*conn.Connection),
		acceptInbound:    queue.New[int](cfg.ServiceQueueCapacity),
		readQ:            queue.New[*conn.Connection](cfg.ServiceQueueCapacity),
		handlerQ:         queue.New[*conn.Connection](cfg.ServiceQueueCapacity),
		writerQ:          queue.New[*conn.Connection](cfg.ServiceQueueCapacity),
		registerInbound:  queue.New[registerMsg](64),
		done:             make(chan struct{}),
	}
	w.requestPool = pool.NewObjectPool(pool.ObjectPoolConfig[httpwire.Request]{
		New:        httpwire.NewRequest,
		Reset:      (*httpwire.Request).Reset,
		WarmupSize: 64,
	})
	w.commonHeaders = buildCommonHeaders(cfg.ServerName, w.dateCache.Value(time.Now()))
	return w
}

func buildCommonHeaders(server string, date []byte) []byte {
	b := make([]byte, 0, len(server)+len(date)+32)
	b = append(b, "Server: "...)
	b = append(b, server...)
	b = append(b, "\r\n"...)
	b = append(b, "Date: "...)
	b = append(b, date...)
	b = append(b, "\r\n"...)
	return b
}

// refreshCommonHeaders rebuilds the common-headers block when the date
// cache rolls to a new wall-clock second. Cheap: one allocation per
// second per worker, not per response.
func (w *Worker) refreshCommonHeaders() {
	now := time.Now()
	before := w.dateCache.FormatCount()
	date := w.dateCache.Value(now)
	if w.dateCache.FormatCount() == before {
		return
	}
	w.commonHeaders = buildCommonHeaders(w.cfg.ServerName, date)
}

// CommonHeaderSize is the byte length of the worker's pre-rendered
// common-headers block, used in renderResponse's space check.
func (w *Worker) CommonHeaderSize() int { return len(w.commonHeaders) }

// AcceptInbound exposes the acceptor hand-off queue to the accept
// package's distribution strategies.
func (w *Worker) AcceptInbound() *queue.Queue[int] { return w.acceptInbound }

// RegisterURLHandler registers a single handler, broadcast-applied on
// this worker's own thread at its next scheduler tick.
func (w *Worker) RegisterURLHandler(path string, handler router.HandlerFunc) {
	w.registerInbound.Offer(registerMsg{path: path, handler: handler})
}

// RegisterURLHandlers is the bulk variant.
func (w *Worker) RegisterURLHandlers(entries map[string]router.HandlerFunc) {
	w.registerInbound.Offer(registerMsg{all: entries})
}

// RequestShutdown asks Run's main loop to exit after draining current
// work; it returns immediately. Use Stopped() to wait for completion.
func (w *Worker) RequestShutdown() { w.shuttingDown.Store(true) }

// Stopped returns a channel closed once Run has finished its shutdown
// sequence.
func (w *Worker) Stopped() <-chan struct{} { return w.done }

// Run is the Worker's single-goroutine main loop: it alternates between
// polling the selector and draining each ready Service to completion.
func (w *Worker) Run() {
	defer close(w.done)
	defer w.recoverFatal()

	for {
		if w.shuttingDown.Load() {
			w.runShutdown()
			return
		}

		w.applyPendingRegistrations()
		w.drainAcceptInbound()

		timeout := int(w.cfg.SelectorTimeout / time.Millisecond)
		if w.anyServiceReady() {
			timeout = 0
		}

		events, err := w.sel.Wait(timeout)
		if err != nil {
			log.Printf("reactor: worker %d selector wait error: %v", w.ID, err)
			continue
		}
		for _, ev := range events {
			w.processEvent(ev)
		}

		w.refreshCommonHeaders()
		w.runAcceptService()
		w.runReadService()
		w.runHandlerService()
		w.runWriterService()
		w.sweepIdleConnections()
	}
}

func (w *Worker) anyServiceReady() bool {
	return w.readQ.Len() > 0 || w.handlerQ.Len() > 0 || w.writerQ.Len() > 0 || w.acceptInbound.Len() > 0
}

func (w *Worker) applyPendingRegistrations() {
	for {
		msg, ok := w.registerInbound.Pop()
		if !ok {
			return
		}
		if msg.all != nil {
			w.registry.AddAll(msg.all)
		} else {
			w.registry.Add(msg.path, msg.handler)
		}
	}
}

func (w *Worker) processEvent(ev poller.Event) {
	c, ok := w.connections[ev.FD]
	if !ok {
		return
	}
	if c.IsClosed() {
		return
	}

	if ev.Readable && !c.IsReadQueued() {
		c.SetReadQueued(true)
		w.readQ.Offer(c)
	}
	if ev.Writable {
		w.writerQ.Offer(c)
	}
}

func (w *Worker) recoverFatal() {
	if r := recover(); r != nil {
		// A SchedulerInvariantViolation: logged, then re-raised; nothing
		// recovers it further up, so the panic ends the whole process.
		log.Printf("reactor: worker %d fatal invariant violation: %v", w.ID, r)
		panic(r)
	}
}

// --- conn.Scheduler implementation ---

func (w *Worker) ScheduleRead(c *conn.Connection) { w.readQ.Offer(c) }

func (w *Worker) ScheduleHandler(c *conn.Connection) { w.handlerQ.Offer(c) }

func (w *Worker) ScheduleWriter(c *conn.Connection) { w.writerQ.Offer(c) }

func (w *Worker) Closed(c *conn.Connection) {
	delete(w.connections, c.FD)
	w.activeConnections.Add(-1)
	unix.Close(c.FD)
	_ = w.sel.Remove(c.FD)
}

// Stats is a point-in-time snapshot of one worker's load, exposed by
// core.Engine.Stats across all workers: the active connection count,
// per-Service queue depth and the connection buffer pool's stats (no
// pending-connection count is reported), enough for core/observability to report
// something beyond "server is up".
type Stats struct {
	ActiveConnections int64
	ReadQueueDepth    int
	HandlerQueueDepth int
	WriterQueueDepth  int
	BufferPool        pool.Stats
}

// Stats returns a snapshot. Safe to call from any goroutine — it only
// reads atomics and queue lengths, both of which tolerate a racy read
// for monitoring purposes.
func (w *Worker) Stats() Stats {
	return Stats{
		ActiveConnections: w.activeConnections.Load(),
		ReadQueueDepth:    w.readQ.Len(),
		HandlerQueueDepth: w.handlerQ.Len(),
		WriterQueueDepth:  w.writerQ.Len(),
		BufferPool:        w.connBufPool.Stats(),
	}
}
