package core

import (
	"sync"
	"time"
)

// MonotonicClock hands out strictly increasing UTC timestamps truncated to
// microseconds, the resolution records are persisted with.
// It is safe for concurrent use.
type MonotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewMonotonicClock creates a clock backed by time.Now.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{now: time.Now}
}

// Now returns the current time, or one microsecond past the previous value
// if the wall clock has not advanced (or went backwards).
func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
