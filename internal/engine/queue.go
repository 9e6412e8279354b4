package engine

import "sync"

// Event is one scheduled beat: its index within the measure and the clock
// time, in seconds, at which it must sound. Events are values; the queue
// holds copies.
type Event struct {
	Beat int     `json:"beat"`
	Time float64 `json:"time"`
}

// Downbeat reports whether the event opens a measure.
func (e Event) Downbeat() bool {
	return e.Beat == 0
}

// eventQueue is a thread-safe FIFO of scheduled beats.
//
// The scheduler only appends events later than everything already queued, so
// insertion order is time order and the queue is never sorted. Consumers only
// remove from the front.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
	}
}

// Push adds an event to the back of the queue.
func (q *eventQueue) Push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, e)
}

// PopDue removes and returns, in order, every front event whose time is at or
// before now. It stops at the first event still in the future.
func (q *eventQueue) PopDue(now float64) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for n < len(q.events) && q.events[n].Time <= now {
		n++
	}
	if n == 0 {
		return nil
	}

	due := make([]Event, n)
	copy(due, q.events[:n])

	if n == len(q.events) {
		// Reset to empty slice with original capacity
		q.events = q.events[:0]
	} else {
		q.events = q.events[n:]
	}
	return due
}

// Snapshot returns a copy of the queued events, front first.
func (q *eventQueue) Snapshot() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Event, len(q.events))
	copy(out, q.events)
	return out
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Clear drops every queued event.
func (q *eventQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = q.events[:0]
}
