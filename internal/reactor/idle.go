package reactor

import "time"

// sweepIdleConnections closes connections that have had no read or
// write activity for longer than cfg.IdleTimeout. This rides the
// worker's own scheduler tick rather than a separate ticker goroutine so
// a Connection is only ever touched from its owning goroutine.
func (w *Worker) sweepIdleConnections() {
	if w.cfg.IdleTimeout <= 0 {
		return
	}
	now := time.Now()
	for _, c := range w.connections {
		if c.IsClosed() {
			continue
		}
		if c.IdleSince(now) > w.cfg.IdleTimeout {
			c.Close("idle timeout")
		}
	}
}
