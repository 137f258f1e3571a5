package testutil

import "sync"

// FixedClock is a settable clock oracle for tests.
//
// It returns the same unix-seconds timestamp until Set or Advance moves it,
// so purchase and claim gates evaluate identically on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now uint64
}

// NewFixedClock creates a clock pinned at the given timestamp.
func NewFixedClock(now uint64) *FixedClock {
	return &FixedClock{now: now}
}

// Now returns the pinned timestamp.
func (c *FixedClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to ts. Moving backwards is allowed.
func (c *FixedClock) Set(ts uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = ts
}

// Advance moves the clock forward by secs.
func (c *FixedClock) Advance(secs uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += secs
}
