//go:build linux

package poller

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestEpollReportsReadableOnWrite(t *testing.T) {
	fds, err := unixSocketpair()
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if err := p.Add(fds[0], true, false); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := unix.Write(fds[1], []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	events, err := p.Wait(1000)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(events) != 1 || events[0].FD != fds[0] || !events[0].Readable {
		t.Fatalf("expected one readable event for fd %d, got %+v", fds[0], events)
	}
}

func TestEpollWaitTimesOutWithNoEvents(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	start := time.Now()
	events, err := p.Wait(50)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Fatalf("Wait returned suspiciously early")
	}
}

func TestEpollRemoveIsIdempotent(t *testing.T) {
	fds, err := unixSocketpair()
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if err := p.Add(fds[0], true, false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.Remove(fds[0]); err != nil {
		t.Fatalf("first Remove: %v", err)
	}
	if err := p.Remove(fds[0]); err != nil {
		t.Fatalf("second Remove on an already-removed fd should be swallowed, got: %v", err)
	}
}

func unixSocketpair() ([2]int, error) {
	return unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
}
