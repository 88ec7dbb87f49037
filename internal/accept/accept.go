// Package accept implements the acceptor and connection-distribution
// strategies: getting an accepted socket from the kernel into exactly
// one worker's hands, without the workers ever sharing a listener or a
// lock. Two strategies are supported, selected by config.ReusePort:
//
//   - RoundRobinDistribution: one shared listen socket, one dedicated
//     acceptor goroutine, handing fds to workers round-robin over each
//     worker's inbound queue.
//   - PerWorkerListeners: one SO_REUSEPORT listen socket per worker,
//     each with its own acceptor goroutine feeding only that worker's
//     queue — the kernel does the load-balancing instead of this code.
package accept

import (
	"context"
	"fmt"
	"log"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/searchktools/reactor-server/internal/queue"
)

// Target is the narrow view of a Worker the acceptor needs: somewhere
// to hand off a freshly-accepted fd.
type Target interface {
	AcceptInbound() *queue.Queue[int]
}

// Config controls how listen sockets are created and how connections
// are handed to workers.
type Config struct {
	Address       string
	ReusePort     bool
	ListenBacklog int
}

// RoundRobinDistribution listens on one shared socket and hands
// accepted fds to workers in round-robin order.
type RoundRobinDistribution struct {
	ln      net.Listener
	workers []Target
	next    int
}

// NewRoundRobin creates a single shared listener and wraps it for
// round-robin fan-out across workers.
func NewRoundRobin(cfg Config, workers []Target) (*RoundRobinDistribution, error) {
	ln, err := listen(cfg)
	if err != nil {
		return nil, err
	}
	return &RoundRobinDistribution{ln: ln, workers: workers}, nil
}

// Run accepts connections until ctx is cancelled or the listener is
// closed, applying TCP_NODELAY/SO_KEEPALIVE before handing each fd to
// the next worker in rotation via a blocking Send — safe here since
// this goroutine is the fd's sole producer, never the worker's own
// goroutine.
func (d *RoundRobinDistribution) Run(ctx context.Context) error {
	defer d.ln.Close()
	for {
		c, err := d.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if isTemporary(err) {
				continue
			}
			return err
		}

		fd, ok := extractFD(c)
		if !ok {
			c.Close()
			continue
		}
		tuneAcceptedSocket(fd)

		w := d.workers[d.next]
		d.next = (d.next + 1) % len(d.workers)
		if err := w.AcceptInbound().Send(ctx, fd); err != nil {
			unix.Close(fd)
		}
	}
}

// Close stops accepting new connections.
func (d *RoundRobinDistribution) Close() error { return d.ln.Close() }

// PerWorkerListeners binds one SO_REUSEPORT listener per worker so the
// kernel spreads inbound connections across workers without any
// userspace round-robin step.
type PerWorkerListeners struct {
	listeners []net.Listener
}

// NewPerWorkerListeners creates one SO_REUSEPORT listener per worker.
func NewPerWorkerListeners(cfg Config, workers []Target) (*PerWorkerListeners, error) {
	cfg.ReusePort = true
	lns := make([]net.Listener, 0, len(workers))
	for range workers {
		ln, err := listen(cfg)
		if err != nil {
			for _, existing := range lns {
				existing.Close()
			}
			return nil, err
		}
		lns = append(lns, ln)
	}
	return &PerWorkerListeners{listeners: lns}, nil
}

// Run starts one acceptor goroutine per worker, each feeding only its
// own worker's queue directly (no round-robin needed). It blocks until
// ctx is cancelled.
func (p *PerWorkerListeners) Run(ctx context.Context, workers []Target) {
	for i, ln := range p.listeners {
		go acceptLoop(ctx, ln, workers[i])
	}
	<-ctx.Done()
	for _, ln := range p.listeners {
		ln.Close()
	}
}

func acceptLoop(ctx context.Context, ln net.Listener, w Target) {
	defer ln.Close()
	for {
		c, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if isTemporary(err) {
				continue
			}
			log.Printf("accept: listener error: %v", err)
			return
		}

		fd, ok := extractFD(c)
		if !ok {
			c.Close()
			continue
		}
		tuneAcceptedSocket(fd)

		if err := w.AcceptInbound().Send(ctx, fd); err != nil {
			unix.Close(fd)
		}
	}
}

func listen(cfg Config) (net.Listener, error) {
	lc := net.ListenConfig{}
	if cfg.ReusePort {
		lc.Control = func(network, address string, rawConn syscall.RawConn) error {
			var ctrlErr error
			err := rawConn.Control(func(fd uintptr) {
				if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); e != nil {
					ctrlErr = e
				}
			})
			if err != nil {
				return err
			}
			return ctrlErr
		}
	}
	ln, err := lc.Listen(context.Background(), "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("accept: listen %s: %w", cfg.Address, err)
	}
	return ln, nil
}

// extractFD pulls the raw fd out of a net.Listener's Accept result and
// dup's it, since the *net.TCPConn keeps the original fd tied to its
// own runtime poller integration; the reactor wants exclusive ownership
// for its own non-blocking read/write/close calls.
func extractFD(c net.Conn) (int, bool) {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return 0, false
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, false
	}

	var dup int
	var dupErr error
	err = raw.Control(func(fd uintptr) {
		dup, dupErr = unix.Dup(int(fd))
	})
	if err != nil || dupErr != nil {
		return 0, false
	}

	// The original *net.TCPConn is no longer needed — the reactor owns
	// the duplicated fd exclusively from here on.
	c.Close()
	return dup, true
}

func tuneAcceptedSocket(fd int) {
	unix.SetNonblock(fd, true)
	unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
}

func isTemporary(err error) bool {
	type temporary interface{ Temporary() bool }
	te, ok := err.(temporary)
	return ok && te.Temporary()
}
