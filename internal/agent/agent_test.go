package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/frhanjav/vm-monitor/internal/monitor"
)

// fakeSampler returns zero-valued snapshots and counts calls.
type fakeSampler struct {
	calls int
}

func (f *fakeSampler) Sample(ctx context.Context) monitor.SystemMetrics {
	f.calls++
	return monitor.SystemMetrics{Timestamp: time.Unix(int64(f.calls), 0)}
}

// fakeCollector records delivery attempts and fails while failSends > 0.
type fakeCollector struct {
	batches        [][]monitor.SystemMetrics
	failSends      int
	heartbeats     int
	failHeartbeats int
}

func (f *fakeCollector) SendMetricsBatch(ctx context.Context, metrics []monitor.SystemMetrics) error {
	// Record a copy: the slice is the buffer's backing store.
	batch := make([]monitor.SystemMetrics, len(metrics))
	copy(batch, metrics)
	f.batches = append(f.batches, batch)
	if f.failSends > 0 {
		f.failSends--
		return errors.New("send failed")
	}
	return nil
}

func (f *fakeCollector) SendHeartbeat(ctx context.Context) error {
	f.heartbeats++
	if f.failHeartbeats > 0 {
		f.failHeartbeats--
		return errors.New("heartbeat failed")
	}
	return nil
}

// fakeClock advances by step on every reading, simulating one sampling
// interval elapsing per tick.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance() {
	c.t = c.t.Add(c.step)
}

func newTestAgent(collector *fakeCollector, batchSize int) (*Agent, *fakeSampler, *fakeClock) {
	sampler := &fakeSampler{}
	clock := &fakeClock{t: time.Unix(1700000000, 0), step: time.Minute}
	a := New(sampler, collector, time.Minute, batchSize, zap.NewNop())
	a.now = clock.now
	a.lastHeartbeat = clock.t
	return a, sampler, clock
}

func TestTick_FlushesExactlyAtBatchSize(t *testing.T) {
	collector := &fakeCollector{}
	a, _, clock := newTestAgent(collector, 3)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		a.tick(ctx)
		clock.advance()
	}
	if len(collector.batches) != 0 {
		t.Fatalf("flush before threshold: %d batches sent", len(collector.batches))
	}

	a.tick(ctx)
	if len(collector.batches) != 1 {
		t.Fatalf("batches sent = %d, want exactly 1", len(collector.batches))
	}
	if len(collector.batches[0]) != 3 {
		t.Errorf("batch size = %d, want 3", len(collector.batches[0]))
	}
	if a.buf.Len() != 0 {
		t.Errorf("buffer len = %d after successful flush, want 0", a.buf.Len())
	}
}

func TestTick_FailedFlushRetainsBuffer(t *testing.T) {
	collector := &fakeCollector{failSends: 1}
	a, _, clock := newTestAgent(collector, 2)
	ctx := context.Background()

	a.tick(ctx)
	clock.advance()
	a.tick(ctx) // hits threshold, delivery fails
	clock.advance()

	if a.buf.Len() != 2 {
		t.Fatalf("buffer len = %d after failed flush, want 2 (retained)", a.buf.Len())
	}

	a.tick(ctx) // retries with the retained content plus one new sample
	if len(collector.batches) != 2 {
		t.Fatalf("delivery attempts = %d, want 2", len(collector.batches))
	}
	if len(collector.batches[1]) != 3 {
		t.Errorf("retry batch size = %d, want 3", len(collector.batches[1]))
	}
	if a.buf.Len() != 0 {
		t.Errorf("buffer len = %d after successful retry, want 0", a.buf.Len())
	}
}

func TestTick_SustainedFailureEvictsOnce(t *testing.T) {
	// 11 consecutive failed deliveries with one sample per tick: the buffer
	// is cleared exactly once, when its length would exceed 5×batchSize = 10.
	collector := &fakeCollector{failSends: 100}
	a, _, clock := newTestAgent(collector, 2)
	ctx := context.Background()

	maxLen := 0
	clearedAt := []int{}
	for i := 1; i <= 11; i++ {
		a.tick(ctx)
		clock.advance()
		if a.buf.Len() > maxLen {
			maxLen = a.buf.Len()
		}
		if a.buf.Len() == 0 {
			clearedAt = append(clearedAt, i)
		}
	}

	if len(clearedAt) != 1 || clearedAt[0] != 11 {
		t.Errorf("buffer cleared at ticks %v, want exactly once at tick 11", clearedAt)
	}
	if maxLen > 10 {
		t.Errorf("buffer reached %d, must never stay above 10", maxLen)
	}
}

func TestTick_HeartbeatCadence(t *testing.T) {
	collector := &fakeCollector{}
	a, _, clock := newTestAgent(collector, 100)
	ctx := context.Background()

	// Five one-minute ticks at minutes 0..4: not yet due.
	for i := 0; i < 5; i++ {
		a.tick(ctx)
		clock.advance()
	}
	if collector.heartbeats != 0 {
		t.Fatalf("heartbeats = %d before interval elapsed, want 0", collector.heartbeats)
	}

	// Next tick lands at minute 5: interval elapsed, heartbeat fires.
	a.tick(ctx)
	clock.advance()
	if collector.heartbeats != 1 {
		t.Fatalf("heartbeats = %d, want 1", collector.heartbeats)
	}

	// Next tick: timer was reset on success, nothing due.
	a.tick(ctx)
	clock.advance()
	if collector.heartbeats != 1 {
		t.Errorf("heartbeats = %d after reset, want still 1", collector.heartbeats)
	}
}

func TestTick_FailedHeartbeatRetriesNextTick(t *testing.T) {
	collector := &fakeCollector{failHeartbeats: 1}
	a, _, clock := newTestAgent(collector, 100)
	ctx := context.Background()

	// Make the heartbeat due, then fail it.
	clock.t = clock.t.Add(heartbeatInterval)
	a.tick(ctx)
	clock.advance()
	if collector.heartbeats != 1 {
		t.Fatalf("heartbeats = %d, want 1 attempt", collector.heartbeats)
	}

	// Marker did not advance, so the very next tick re-attempts.
	a.tick(ctx)
	if collector.heartbeats != 2 {
		t.Errorf("heartbeats = %d, want re-attempt on next tick", collector.heartbeats)
	}
}

func TestShutdown_SingleBestEffortFlush(t *testing.T) {
	tests := []struct {
		name      string
		failSends int
	}{
		{"flush_succeeds", 0},
		{"flush_fails", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := &fakeCollector{failSends: tt.failSends}
			a, _, clock := newTestAgent(collector, 3)
			ctx := context.Background()

			a.tick(ctx)
			clock.advance()
			a.tick(ctx) // two undelivered snapshots, below threshold
			a.shutdown()

			if len(collector.batches) != 1 {
				t.Fatalf("flush attempts = %d, want exactly 1 regardless of outcome", len(collector.batches))
			}
			if len(collector.batches[0]) != 2 {
				t.Errorf("final batch size = %d, want 2", len(collector.batches[0]))
			}
			if a.buf.Len() != 0 {
				t.Errorf("buffer len = %d after shutdown, want 0", a.buf.Len())
			}
		})
	}
}

func TestShutdown_EmptyBufferSendsNothing(t *testing.T) {
	collector := &fakeCollector{}
	a, _, _ := newTestAgent(collector, 3)

	a.shutdown()
	if len(collector.batches) != 0 {
		t.Errorf("flush attempts = %d with empty buffer, want 0", len(collector.batches))
	}
}

func TestRun_CancellationStopsLoop(t *testing.T) {
	collector := &fakeCollector{}
	sampler := &fakeSampler{}
	a := New(sampler, collector, 10*time.Millisecond, 1000, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	// Let a few ticks happen, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if sampler.calls == 0 {
		t.Error("no samples collected before cancellation")
	}
	// Undelivered snapshots got the shutdown flush.
	if len(collector.batches) != 1 {
		t.Errorf("flush attempts = %d, want 1 shutdown flush", len(collector.batches))
	}
}
