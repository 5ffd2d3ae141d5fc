package feed

import "sync"

// Bridge is the per-subscription FIFO of batches delivered to the consumer
// (spec §4.3). Capacity is advisory: Enqueue never blocks, so the producer
// must consult Count itself to decide whether to apply backpressure.
type Bridge struct {
	mu       sync.Mutex
	batches  []Batch
	capacity int
}

// NewBridge constructs a Bridge with the given soft capacity.
func NewBridge(capacity int) *Bridge {
	if capacity < 1 {
		capacity = 1
	}
	return &Bridge{capacity: capacity}
}

// Enqueue appends batch to the FIFO. Never blocks and never rejects: capacity
// is a hint the producer consults via Count, not an enforced bound.
func (b *Bridge) Enqueue(batch Batch) {
	if len(batch) == 0 {
		return
	}
	b.mu.Lock()
	b.batches = append(b.batches, batch)
	b.mu.Unlock()
}

// TryDequeue removes and returns the oldest batch, or ok=false if empty.
func (b *Bridge) TryDequeue() (batch Batch, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.batches) == 0 {
		return nil, false
	}
	batch = b.batches[0]
	b.batches[0] = nil
	b.batches = b.batches[1:]
	return batch, true
}

// Count reports the number of queued batches.
func (b *Bridge) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batches)
}

// Capacity reports the soft capacity this bridge was constructed with.
func (b *Bridge) Capacity() int {
	return b.capacity
}

// Clear drops every queued batch without emitting it, used by
// ControlSurface.PurgeData. Safe to call concurrently with Enqueue; a batch
// in flight during the race may be lost, which is acceptable under the
// documented shutdown semantics (spec §9, purgeData race).
func (b *Bridge) Clear() {
	b.mu.Lock()
	b.batches = nil
	b.mu.Unlock()
}
