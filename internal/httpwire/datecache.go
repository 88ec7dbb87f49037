package httpwire

import (
	"sync/atomic"
	"time"
)

// DateCache holds the worker's cached `Date:` header value, reformatted
// at most once per wall-clock second. Each Worker owns one DateCache;
// it is read only from the owning worker's thread, so the cached bytes
// field needs no synchronization of its own — the atomic second marker
// exists purely so tests can observe the at-most-once guarantee from
// another goroutine without racing.
type DateCache struct {
	latestEpochSecond atomic.Int64
	cached            []byte
	formats           atomic.Uint64
}

// NewDateCache creates a cache with no value formatted yet.
func NewDateCache() *DateCache {
	return &DateCache{latestEpochSecond: atomic.Int64{}}
}

// Value returns the RFC-1123 (GMT) formatted Date header value for the
// current wall-clock second, reformatting only when the second has
// advanced since the last call.
func (d *DateCache) Value(now time.Time) []byte {
	sec := now.Unix()
	if d.latestEpochSecond.Load() == sec && d.cached != nil {
		return d.cached
	}
	d.cached = []byte(now.UTC().Format(time.RFC1123))
	d.latestEpochSecond.Store(sec)
	d.formats.Add(1)
	return d.cached
}

// FormatCount reports how many times the underlying time has actually
// been reformatted — used to assert that formatting happens at most
// once per wall-clock second regardless of request volume.
func (d *DateCache) FormatCount() uint64 { return d.formats.Load() }
