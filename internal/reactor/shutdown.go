package reactor

import "time"

// runShutdown implements a graceful drain: stop accepting new work, let
// already-queued requests and responses finish, then close every
// Connection and release the selector.
func (w *Worker) runShutdown() {
	deadline := time.Now().Add(w.cfg.IdleTimeout)

	for time.Now().Before(deadline) {
		if len(w.connections) == 0 && w.acceptInbound.Len() == 0 {
			break
		}

		w.drainAcceptInbound()

		events, err := w.sel.Wait(50)
		if err == nil {
			for _, ev := range events {
				w.processEvent(ev)
			}
		}

		w.runReadService()
		w.runHandlerService()
		w.runWriterService()

		if !w.anyConnectionHasPendingWork() {
			break
		}
	}

	for fd, c := range w.connections {
		c.Close("Server is shutting down.")
		delete(w.connections, fd)
	}
	w.sel.Close()
}

func (w *Worker) anyConnectionHasPendingWork() bool {
	for _, c := range w.connections {
		if c.HasQueuedExchanges() || c.HasReadyResponses() {
			return true
		}
	}
	return false
}
