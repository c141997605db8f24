package engine

import (
	"context"
	"sync"
)

// UpdateKind names an outbound update.
type UpdateKind string

const (
	UpdateElement         UpdateKind = "elementUpdated"
	UpdateCaptionStyleAll UpdateKind = "captionStyleApplyToAll"
	UpdateWatermark       UpdateKind = "watermarkUpdated"
	UpdateZOrderChanged   UpdateKind = "zOrderChanged"
	UpdateItemSelected    UpdateKind = "itemSelected"
)

// Update is one message on the outbound write channel to the timeline.
//
// Payload by kind:
//   - elementUpdated: model.Element
//   - captionStyleApplyToAll: model.CaptionStyle
//   - watermarkUpdated: model.Element
//   - zOrderChanged: Move
//   - itemSelected: Selection
type Update struct {
	Seq       int64      `json:"seq"`
	Kind      UpdateKind `json:"kind"`
	ElementID string     `json:"element_id,omitempty"`
	Payload   any        `json:"payload,omitempty"`
}

// Selection is the payload of itemSelected.
type Selection struct {
	IDs []string `json:"ids"`
}

// Outbox is a thread-safe unbounded FIFO of Updates.
//
// The outbox uses a channel for signaling so consumers can wait with a
// context instead of polling.
type Outbox struct {
	mu      sync.Mutex
	updates []Update
	closed  bool
	signal  chan struct{} // buffered, size 1
}

func newOutbox() *Outbox {
	return &Outbox{
		updates: make([]Update, 0, 16),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds an update to the back of the outbox.
// Returns false if the outbox is closed.
func (q *Outbox) Enqueue(u Update) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.updates = append(q.updates, u)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front update without blocking.
func (q *Outbox) TryDequeue() (Update, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.updates) == 0 {
		return Update{}, false
	}
	u := q.updates[0]

	// Clear the slot so the payload can be collected.
	q.updates[0] = Update{}
	if len(q.updates) == 1 {
		q.updates = q.updates[:0]
	} else {
		q.updates = q.updates[1:]
	}
	return u, true
}

// Wait returns a channel that signals when updates may be available. The
// channel is closed when the outbox is closed.
func (q *Outbox) Wait() <-chan struct{} {
	return q.signal
}

// Next blocks until an update is available, the outbox is closed and
// empty, or ctx is done.
func (q *Outbox) Next(ctx context.Context) (Update, bool) {
	for {
		if u, ok := q.TryDequeue(); ok {
			return u, true
		}
		select {
		case <-ctx.Done():
			return Update{}, false
		case _, open := <-q.signal:
			if !open && q.Len() == 0 {
				return Update{}, false
			}
		}
	}
}

// Drain removes and returns every queued update.
func (q *Outbox) Drain() []Update {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Update, len(q.updates))
	copy(out, q.updates)
	q.updates = q.updates[:0]
	return out
}

// Len returns the number of queued updates.
func (q *Outbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.updates)
}

// Close signals that no more updates will be enqueued and wakes waiters.
func (q *Outbox) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
