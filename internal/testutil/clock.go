// Package testutil provides deterministic collaborators for engine tests:
// a resettable logical clock and a scriptable media sampler.
package testutil

import "sync"

// DeterministicClock is a resettable logical clock. It satisfies
// engine.SeqSource, so rebuild generations and update sequence numbers are
// reproducible across runs of the same scenario.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances and returns the sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last issued sequence number.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Set jumps the clock so the next value is seq+1. Tests use it to simulate
// a newer rebuild having started.
func (c *DeterministicClock) Set(seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = seq
}

// Reset returns the clock to 0.
func (c *DeterministicClock) Reset() {
	c.Set(0)
}
