package engine

import "sync/atomic"

// SeqSource issues monotonic sequence numbers. Implemented by Clock and by
// testutil.DeterministicClock.
type SeqSource interface {
	Next() int64
	Current() int64
}

// Clock is the engine's monotonic logical clock. It stamps rebuild
// generations and outbound update sequence numbers.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
