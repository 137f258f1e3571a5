package host

import (
	"sync/atomic"
	"time"
)

// SeqClock is a monotonic logical clock for journal ordering.
//
// Every journal entry is stamped with a strictly increasing seq from this
// clock. Safe for concurrent use.
type SeqClock struct {
	seq atomic.Int64
}

// NewSeqClock creates a clock starting at 0.
func NewSeqClock() *SeqClock {
	return &SeqClock{}
}

// NewSeqClockAt creates a clock resuming after start.
// Used when reopening a store with an existing journal.
func NewSeqClockAt(start int64) *SeqClock {
	c := &SeqClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *SeqClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *SeqClock) Current() int64 {
	return c.seq.Load()
}

// SystemClock reads wall-clock unix seconds.
type SystemClock struct{}

// Now returns the current unix timestamp. Times before the epoch read as 0.
func (SystemClock) Now() uint64 {
	ts := time.Now().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// StaticClock always reports the same timestamp.
type StaticClock uint64

// Now returns c.
func (c StaticClock) Now() uint64 {
	return uint64(c)
}
