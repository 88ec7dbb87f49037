// Package pool implements the worker-local buffer pool and the small
// generic object pool used for request/response scratch values. Pools
// here are single-threaded by contract: a Pool is created by, and used
// exclusively from, one Worker's goroutine. There is no cross-worker
// buffer sharing, matching the one-pool-per-worker model.
package pool

import (
	"fmt"
	"sync/atomic"
)

// Buffer is a fixed-capacity byte buffer checked out from a Pool. It
// behaves like a small bytes.Buffer with explicit position/limit so
// renderResponse can test "does the remaining space fit this response"
// without a copy.
type Buffer struct {
	pool  *Pool
	Bytes []byte
	pos   int
	lim   int
	refs  int32
}

// Remaining reports how many bytes are free between pos and lim.
func (b *Buffer) Remaining() int { return b.lim - b.pos }

// Pos returns the current write position.
func (b *Buffer) Pos() int { return b.pos }

// Len returns bytes written so far (equivalent to Pos).
func (b *Buffer) Len() int { return b.pos }

// Append writes p at the current position, advancing it. It panics if p
// does not fit — callers must check Remaining first, exactly as
// renderResponse does.
func (b *Buffer) Append(p []byte) {
	if len(p) > b.Remaining() {
		panic("pool: buffer overflow, caller did not check Remaining")
	}
	n := copy(b.Bytes[b.pos:b.lim], p)
	b.pos += n
}

// AppendByte writes a single byte at the current position.
func (b *Buffer) AppendByte(c byte) {
	if b.Remaining() < 1 {
		panic("pool: buffer overflow, caller did not check Remaining")
	}
	b.Bytes[b.pos] = c
	b.pos++
}

// Reset rewinds the buffer to an empty, fully-available state. It does
// not zero the backing array — only position bookkeeping changes.
func (b *Buffer) Reset() {
	b.pos = 0
	b.lim = len(b.Bytes)
}

// View returns the bytes written since the last Reset.
func (b *Buffer) View() []byte { return b.Bytes[:b.pos] }

// Tail returns the unwritten free space, for a reader (e.g. a
// non-blocking socket read) to write into directly. Pair with Advance.
func (b *Buffer) Tail() []byte { return b.Bytes[b.pos:b.lim] }

// Advance moves the write position forward by n, as if n bytes had
// been Appended — used after writing directly into Tail().
func (b *Buffer) Advance(n int) {
	if n > b.Remaining() {
		panic("pool: Advance beyond Remaining")
	}
	b.pos += n
}

// Compact discards the first n bytes (already consumed by a parser)
// and shifts any remaining written bytes down to the front, so the next
// Tail() write lands after live data rather than past the capacity.
func (b *Buffer) Compact(n int) {
	if n <= 0 {
		return
	}
	remaining := b.pos - n
	if remaining > 0 {
		copy(b.Bytes[:remaining], b.Bytes[n:b.pos])
	}
	b.pos = remaining
}

// Release returns the buffer to its owning pool. A Buffer must be
// released exactly once; releasing it a second time panics, which is
// how the "buffer returned to the pool exactly once" invariant is
// exercised under test.
func (b *Buffer) Release() {
	if !atomic.CompareAndSwapInt32(&b.refs, 1, 0) {
		panic(fmt.Sprintf("pool: buffer released more than once (refs=%d)", atomic.LoadInt32(&b.refs)))
	}
	b.Reset()
	b.pool.put(b)
}

// Pool hands out fixed-capacity Buffers of a single size class. It
// grows without bound when exhausted rather than capping growth and
// blocking a caller waiting for a free buffer.
type Pool struct {
	capacity int
	free     []*Buffer

	gets atomic.Uint64
	puts atomic.Uint64
	news atomic.Uint64
}

// New creates a Pool producing buffers of the given fixed capacity.
func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Pool{capacity: capacity}
}

// Get acquires a buffer, allocating a new one if the free list is empty.
func (p *Pool) Get() *Buffer {
	p.gets.Add(1)
	n := len(p.free)
	if n == 0 {
		p.news.Add(1)
		b := &Buffer{pool: p, Bytes: make([]byte, p.capacity), refs: 1}
		b.Reset()
		return b
	}
	b := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	atomic.StoreInt32(&b.refs, 1)
	b.Reset()
	return b
}

func (p *Pool) put(b *Buffer) {
	p.puts.Add(1)
	p.free = append(p.free, b)
}

// Stats reports pool hit-rate and live-buffer bookkeeping, used to
// verify the "buffer-pool in-use count returns to 0" property.
type Stats struct {
	Capacity  int
	Gets      uint64
	Puts      uint64
	News      uint64
	HitRate   float64
	InUse     int64
	FreeCount int
}

// Stats returns a point-in-time snapshot of pool counters.
func (p *Pool) Stats() Stats {
	gets := p.gets.Load()
	news := p.news.Load()
	puts := p.puts.Load()
	hit := 0.0
	if gets > 0 {
		hit = float64(gets-news) / float64(gets)
	}
	return Stats{
		Capacity:  p.capacity,
		Gets:      gets,
		Puts:      puts,
		News:      news,
		HitRate:   hit,
		InUse:     int64(gets) - int64(puts),
		FreeCount: len(p.free),
	}
}

// InUse reports how many buffers are currently checked out (not
// returned). It is an O(1) counter, not a scan.
func (p *Pool) InUse() int64 {
	return int64(p.gets.Load()) - int64(p.puts.Load())
}
