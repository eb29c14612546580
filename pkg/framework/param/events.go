package param

import "sync/atomic"

// Event is a parameter change scheduled at a sample offset within the
// next processed block.
type Event struct {
	Index  int
	Value  float64
	Offset int
	// Serial is the snapshot serial of the parameter when the event was
	// queued. Zero for events built outside the store queue.
	Serial uint64
}

// EventQueue is a single-producer single-consumer ring of events. Push
// and Pop never block or allocate.
type EventQueue struct {
	buf  []Event
	mask uint64

	head atomic.Uint64 // next slot to read
	tail atomic.Uint64 // next slot to write
}

// NewEventQueue creates a queue holding at least capacity events.
func NewEventQueue(capacity int) *EventQueue {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &EventQueue{
		buf:  make([]Event, size),
		mask: uint64(size - 1),
	}
}

// Cap returns the queue capacity.
func (q *EventQueue) Cap() int {
	return len(q.buf)
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Push appends an event. Returns false if the queue is full.
func (q *EventQueue) Push(e Event) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() >= uint64(len(q.buf)) {
		return false
	}
	q.buf[tail&q.mask] = e
	q.tail.Store(tail + 1)
	return true
}

// Pop removes the oldest event.
func (q *EventQueue) Pop() (Event, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return Event{}, false
	}
	e := q.buf[head&q.mask]
	q.head.Store(head + 1)
	return e, true
}

// Drain appends every queued event to dst[:0] and returns it. dst should
// have enough capacity to avoid growing on the audio thread.
func (q *EventQueue) Drain(dst []Event) []Event {
	dst = dst[:0]
	for {
		e, ok := q.Pop()
		if !ok {
			return dst
		}
		dst = append(dst, e)
	}
}
