package httpwire

// RingOfResponses is the per-connection bounded ready-response queue:
// single-producer (the handler), single-consumer (the writer). It is a
// plain ring buffer rather than a channel-backed queue.Queue: both ends
// are driven from the same worker goroutine in this implementation, and
// ResponseWriterService needs to Peek a response while attempting to
// render it (a render can fail for want of buffer space and must leave
// the response in place for the next attempt), which a channel cannot
// express.
type RingOfResponses struct {
	buf        []*Response
	head, size int
}

// NewRingOfResponses creates a ring with the given bound.
func NewRingOfResponses(capacity int) *RingOfResponses {
	if capacity < 1 {
		capacity = 1
	}
	return &RingOfResponses{buf: make([]*Response, capacity)}
}

// Empty reports whether no response is queued.
func (r *RingOfResponses) Empty() bool { return r.size == 0 }

// Len reports how many responses are queued.
func (r *RingOfResponses) Len() int { return r.size }

// Offer appends a response if there is room, reporting success.
func (r *RingOfResponses) Offer(resp *Response) bool {
	if r.size == len(r.buf) {
		return false
	}
	tail := (r.head + r.size) % len(r.buf)
	r.buf[tail] = resp
	r.size++
	return true
}

// Peek returns the oldest queued response without removing it.
func (r *RingOfResponses) Peek() (*Response, bool) {
	if r.size == 0 {
		return nil, false
	}
	return r.buf[r.head], true
}

// Pop removes the oldest queued response.
func (r *RingOfResponses) Pop() {
	if r.size == 0 {
		return
	}
	r.buf[r.head] = nil
	r.head = (r.head + 1) % len(r.buf)
	r.size--
}
