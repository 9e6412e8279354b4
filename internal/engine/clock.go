package engine

import (
	"sync"
	"time"
)

// Clock is the scheduler's time source. Now returns seconds since an
// arbitrary epoch and must never decrease between resets.
type Clock interface {
	Now() float64
}

// Resetter is implemented by clocks whose epoch can be moved to "now".
// The Metronome resets such clocks at the start of every session.
type Resetter interface {
	Reset()
}

// MonotonicClock reads the Go runtime's monotonic clock.
//
// Thread-safety: MonotonicClock is safe for concurrent use.
type MonotonicClock struct {
	mu    sync.RWMutex
	epoch time.Time
}

// NewMonotonicClock creates a clock whose epoch is the current instant.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{epoch: time.Now()}
}

// Now returns the seconds elapsed since the epoch.
// time.Since uses the monotonic reading, so wall-clock jumps do not leak in.
func (c *MonotonicClock) Now() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.epoch).Seconds()
}

// Reset moves the epoch to the current instant.
func (c *MonotonicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch = time.Now()
}
