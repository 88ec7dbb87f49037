//go:build darwin

package poller

import (
	"golang.org/x/sys/unix"
)

// kqueuePoller is a kqueue-based Poller. READ and WRITE interest are
// independent filters in kqueue, so toggling write-readiness (the
// common case after a partial ResponseWriterService write) means
// adding or deleting the EVFILT_WRITE registration rather than OR-ing a
// bitmask as epoll does.
type kqueuePoller struct {
	kqfd   int
	events []unix.Kevent_t
}

// New creates the platform Poller — kqueue on Darwin.
func New() (Poller, error) {
	kqfd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueuePoller{
		kqfd:   kqfd,
		events: make([]unix.Kevent_t, 1024),
	}, nil
}

func kevent(fd int, filter int16, flags uint16) unix.Kevent_t {
	return unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  flags,
	}
}

func (p *kqueuePoller) apply(changes []unix.Kevent_t) error {
	_, err := unix.Kevent(p.kqfd, changes, nil, nil)
	return err
}

func (p *kqueuePoller) Add(fd int, readable, writable bool) error {
	changes := make([]unix.Kevent_t, 0, 2)
	changes = append(changes, kevent(fd, unix.EVFILT_READ, flagsFor(readable)))
	changes = append(changes, kevent(fd, unix.EVFILT_WRITE, flagsFor(writable)))
	return p.apply(changes)
}

func (p *kqueuePoller) Modify(fd int, readable, writable bool) error {
	return p.Add(fd, readable, writable)
}

func flagsFor(interested bool) uint16 {
	if interested {
		return unix.EV_ADD | unix.EV_ENABLE
	}
	return unix.EV_DELETE
}

func (p *kqueuePoller) Remove(fd int) error {
	changes := []unix.Kevent_t{
		kevent(fd, unix.EVFILT_READ, unix.EV_DELETE),
		kevent(fd, unix.EVFILT_WRITE, unix.EV_DELETE),
	}
	// Best-effort: a fd not currently registered under one filter
	// yields ENOENT, which is expected and swallowed here, matching the
	// "CancelledKeyException while re-registering interest" handling
	// the core's error taxonomy describes.
	for _, c := range changes {
		if err := p.apply([]unix.Kevent_t{c}); err != nil && err != unix.ENOENT {
			return err
		}
	}
	return nil
}

func (p *kqueuePoller) Wait(timeoutMillis int) ([]Event, error) {
	var ts *unix.Timespec
	if timeoutMillis >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMillis / 1000),
			Nsec: int64((timeoutMillis % 1000) * 1000000),
		}
	}

	n, err := unix.Kevent(p.kqfd, nil, p.events, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	byFD := make(map[int]*Event, n)
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		raw := p.events[i]
		fd := int(raw.Ident)
		e, ok := byFD[fd]
		if !ok {
			e = &Event{FD: fd}
			byFD[fd] = e
			order = append(order, fd)
		}
		switch raw.Filter {
		case unix.EVFILT_READ:
			e.Readable = true
		case unix.EVFILT_WRITE:
			e.Writable = true
		}
	}

	out := make([]Event, 0, len(order))
	for _, fd := range order {
		out = append(out, *byFD[fd])
	}
	return out, nil
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.kqfd)
}
