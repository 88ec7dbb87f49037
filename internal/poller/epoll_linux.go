//go:build linux

package poller

import (
	"golang.org/x/sys/unix"
)

// epollPoller is an epoll-based Poller using level-triggered EPOLLIN /
// EPOLLOUT (no EPOLLET): simpler to reason about under partial
// reads/writes, at the cost of being re-notified until the Worker
// actually drains a ready fd.
type epollPoller struct {
	epfd   int
	events []unix.EpollEvent
}

// New creates the platform Poller — epoll on Linux.
func New() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{
		epfd:   epfd,
		events: make([]unix.EpollEvent, 1024),
	}, nil
}

func interestMask(readable, writable bool) uint32 {
	var mask uint32 = unix.EPOLLRDHUP
	if readable {
		mask |= unix.EPOLLIN
	}
	if writable {
		mask |= unix.EPOLLOUT
	}
	return mask
}

func (p *epollPoller) Add(fd int, readable, writable bool) error {
	ev := unix.EpollEvent{Events: interestMask(readable, writable), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) Modify(fd int, readable, writable bool) error {
	ev := unix.EpollEvent{Events: interestMask(readable, writable), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) Remove(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		return nil
	}
	return err
}

func (p *epollPoller) Wait(timeoutMillis int) ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		raw := p.events[i]
		out = append(out, Event{
			FD:       int(raw.Fd),
			Readable: raw.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0,
			Writable: raw.Events&unix.EPOLLOUT != 0,
		})
	}
	return out, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
