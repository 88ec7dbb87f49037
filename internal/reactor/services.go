package reactor

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/reactor-server/internal/conn"
	"github.com/searchktools/reactor-server/internal/httpwire"
	"github.com/searchktools/reactor-server/internal/sendfile"
)

// drainAcceptInbound is ConnectionAcceptService: it turns raw accepted
// fds handed off by internal/accept into Connections registered with
// this worker's own selector — each accepted connection belongs to
// exactly one worker for its entire lifetime.
func (w *Worker) drainAcceptInbound() {
	for {
		fd, ok := w.acceptInbound.Pop()
		if !ok {
			return
		}
		w.acceptFD(fd)
	}
}

func (w *Worker) acceptFD(fd int) {
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return
	}

	c := conn.New(fd, w, w.cfg.ReadyResponseQueueCapacity)
	if err := w.sel.Add(fd, true, false); err != nil {
		unix.Close(fd)
		return
	}
	w.connections[fd] = c
	c.MarkOpen()
	w.activeConnections.Add(1)
}

// runAcceptService is a no-op beyond drainAcceptInbound today — kept as
// its own named step so the four-Service structure stays visible in
// Run's tick, and so a future listen-backlog metric has somewhere to
// live.
func (w *Worker) runAcceptService() {}

// runReadService is ConnectionReadService: for every Connection made
// readable since the last tick, read as much as the socket offers
// without blocking, parse every complete request out of the buffer
// (pipelining support), and enqueue each as an Exchange for
// RequestHandlerService.
func (w *Worker) runReadService() {
	for {
		c, ok := w.readQ.Pop()
		if !ok {
			return
		}
		c.SetReadQueued(false)
		if c.IsClosed() {
			continue
		}
		w.handleReadable(c)
	}
}

func (w *Worker) handleReadable(c *conn.Connection) {
	if c.ReadBuf == nil {
		c.ReadBuf = w.connBufPool.Get()
	}
	buf := c.ReadBuf

	for {
		tail := buf.Tail()
		if len(tail) == 0 {
			// Buffer is full of unparsed bytes the parser has rejected
			// as incomplete — the request line or headers exceed the
			// configured buffer size. No amount of further reading
			// will make this request parseable, so close instead of
			// looping forever.
			c.Close("request exceeds connection buffer size")
			return
		}

		n, err := unix.Read(c.FD, tail)
		if n > 0 {
			buf.Advance(n)
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			break
		}
		if err != nil {
			c.Close("read error: " + err.Error())
			return
		}
		if n == 0 {
			c.Close("peer closed connection")
			return
		}
		if n < len(tail) {
			// Short read: the socket had less ready than our buffer
			// offered. Re-reading now would just return EAGAIN.
			break
		}
	}

	c.Touch(time.Now())

	if err := w.parseReady(c); err != nil {
		c.Close(err.Error())
		return
	}

	if c.ReadBuf != nil && c.ReadBuf.Len() == 0 {
		c.ReadBuf.Release()
		c.ReadBuf = nil
	}
}

// parseReady drains every complete request currently sitting in
// c.ReadBuf, compacting consumed bytes out after each one so a
// pipelined second request starts at offset 0 of the remaining data.
func (w *Worker) parseReady(c *conn.Connection) error {
	buf := c.ReadBuf
	for {
		if buf.Len() == 0 {
			return nil
		}
		req := w.requestPool.Get()
		consumed, err := httpwire.ParseRequest(buf.View(), req)
		if err == httpwire.ErrIncomplete {
			w.requestPool.Put(req)
			return nil
		}
		if err != nil {
			w.requestPool.Put(req)
			return err
		}
		buf.Compact(consumed)
		c.EnqueueExchange(&httpwire.Exchange{Request: req, Conn: c})
	}
}

// runHandlerService is RequestHandlerService: for every Connection with
// queued Exchanges, look up and invoke the registered handler for each
// one in FIFO order.
func (w *Worker) runHandlerService() {
	for {
		c, ok := w.handlerQ.Pop()
		if !ok {
			return
		}
		if c.IsClosed() {
			w.releaseQueuedRequests(c)
			continue
		}
		w.drainExchanges(c)
	}
}

func (w *Worker) drainExchanges(c *conn.Connection) {
	for {
		ex, ok := c.NextExchange()
		if !ok {
			return
		}
		handler, params, found := w.registry.Find(ex.Request.Path)
		if !found {
			ex.Conn.AppendResponse(httpwire.SharedNotFound())
		} else {
			ex.Params = params
			handler(ex)
		}
		w.requestPool.Put(ex.Request)
	}
}

func (w *Worker) releaseQueuedRequests(c *conn.Connection) {
	for {
		ex, ok := c.NextExchange()
		if !ok {
			return
		}
		w.requestPool.Put(ex.Request)
	}
}

// runWriterService is ResponseWriterService: for every Connection with
// a ready response, render it into the write buffer and flush as much
// as the socket accepts without blocking.
func (w *Worker) runWriterService() {
	for {
		c, ok := w.writerQ.Pop()
		if !ok {
			return
		}
		if c.IsClosed() {
			continue
		}
		w.handleWritable(c)
	}
}

func (w *Worker) handleWritable(c *conn.Connection) {
	c.Touch(time.Now())
	if c.WriteBuf == nil {
		c.WriteBuf = w.connBufPool.Get()
	}
	buf := c.WriteBuf

	if !w.flushWriteBuf(c) {
		return
	}
	if buf.Len() > 0 {
		// The socket is still backed up from a previous tick; wait for
		// the next writable event instead of rendering more on top of
		// unsent bytes.
		w.sel.Modify(c.FD, true, true)
		return
	}

	for c.HasReadyResponses() {
		resp, _ := c.PeekResponse()

		// A file-backed response whose headers already went out on a
		// prior tick: resume sendfile instead of re-rendering headers.
		// The response stays at the front of the queue (not popped)
		// until sendFileBody reports it fully sent.
		if resp.IsFileBacked() && resp.HeadersSent() {
			if !w.sendFileBody(c, resp) {
				return
			}
			continue
		}

		if !httpwire.RenderResponse(buf, w.commonHeaders, resp) {
			if buf.Len() == 0 {
				// The response alone exceeds the connection buffer
				// size; nothing we do here will make it fit.
				c.Close("response exceeds connection buffer size")
				return
			}
			if !w.flushWriteBuf(c) {
				return
			}
			if buf.Len() > 0 {
				w.sel.Modify(c.FD, true, true)
				return
			}
			continue
		}

		// Headers (and, for an in-memory body, the body itself) are now
		// in buf. A plain response is done once flushed and pops here;
		// a file-backed response's body still has to go out via
		// sendFileBody, which pops it once FileDone().
		if resp.IsFileBacked() {
			resp.MarkHeadersSent()
		} else {
			c.PopResponse()
		}
		if !w.flushWriteBuf(c) {
			return
		}
		if buf.Len() > 0 {
			w.sel.Modify(c.FD, true, true)
			return
		}

		if resp.IsFileBacked() {
			if !w.sendFileBody(c, resp) {
				return
			}
		}
	}

	w.sel.Modify(c.FD, true, false)
	if buf.Len() == 0 {
		buf.Release()
		c.WriteBuf = nil
	}
}

// sendFileBody sendfile's as much of resp's remaining body as the
// socket accepts without blocking. It pops resp off c once fully sent.
// It returns false if handleWritable should stop touching c this tick
// — either the connection closed on error, or the socket is backed up
// and c is now waiting for the next writable event.
func (w *Worker) sendFileBody(c *conn.Connection, resp *httpwire.Response) bool {
	remaining := resp.FileSize - resp.FileSent()
	if remaining <= 0 {
		c.PopResponse()
		return true
	}

	n, err := sendfile.Send(c.FD, resp.FilePath, resp.FileOffset+resp.FileSent(), int(remaining))
	if n > 0 {
		resp.AdvanceFileSent(int64(n))
	}
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			w.sel.Modify(c.FD, true, true)
			return false
		}
		c.Close("sendfile error: " + err.Error())
		return false
	}

	if resp.FileDone() {
		c.PopResponse()
		return true
	}
	// Sent fewer bytes than requested with no error — the socket
	// accepted a partial write; wait for the next writable event.
	w.sel.Modify(c.FD, true, true)
	return false
}

// flushWriteBuf writes as much of c.WriteBuf as the socket accepts
// without blocking, compacting whatever remains. It returns false if
// the connection was closed (by a write error) so the caller should
// stop touching c.
func (w *Worker) flushWriteBuf(c *conn.Connection) bool {
	buf := c.WriteBuf
	data := buf.View()
	off := 0
	for off < len(data) {
		n, err := unix.Write(c.FD, data[off:])
		if n > 0 {
			off += n
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			break
		}
		if err != nil {
			c.Close("write error: " + err.Error())
			return false
		}
		if n == 0 {
			break
		}
	}
	buf.Compact(off)
	return true
}
