package agent

import "github.com/frhanjav/vm-monitor/internal/monitor"

// overflowFactor bounds the buffer at this multiple of the batch size. Past
// it, the whole buffer is dropped: telemetry is best-effort, not an audit
// log, and bounded memory wins over completeness under a sustained outage.
const overflowFactor = 5

// Buffer is the in-memory FIFO of snapshots awaiting delivery. It is owned
// exclusively by the Agent's loop — a single writer, no concurrent access,
// so it carries no lock.
type Buffer struct {
	items []monitor.SystemMetrics
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Push appends a snapshot, preserving insertion order.
func (b *Buffer) Push(s monitor.SystemMetrics) {
	b.items = append(b.items, s)
}

// Len returns the number of undelivered snapshots.
func (b *Buffer) Len() int {
	return len(b.items)
}

// AtThreshold reports whether the buffer holds at least one full batch.
func (b *Buffer) AtThreshold(batchSize int) bool {
	return len(b.items) >= batchSize
}

// Items returns the pending snapshots in FIFO order. The slice is the
// buffer's backing store; callers must not retain it across a Clear.
func (b *Buffer) Items() []monitor.SystemMetrics {
	return b.items
}

// Clear discards all pending snapshots.
func (b *Buffer) Clear() {
	b.items = nil
}

// Drain returns all pending snapshots and empties the buffer.
func (b *Buffer) Drain() []monitor.SystemMetrics {
	items := b.items
	b.items = nil
	return items
}

// EvictIfOverflowing applies the overflow policy after a failed delivery:
// when the buffer has grown past overflowFactor times the batch size, the
// entire buffer is cleared. No partial trimming — full clear is the defined
// behavior. Reports whether an eviction happened.
func (b *Buffer) EvictIfOverflowing(batchSize int) bool {
	if len(b.items) <= batchSize*overflowFactor {
		return false
	}
	b.items = nil
	return true
}
