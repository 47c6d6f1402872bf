// Package agent implements the delivery scheduler: a single cooperative loop
// that samples host metrics on a fixed interval, batches them in a bounded
// in-memory buffer, and delivers batches and heartbeats to the collector.
//
// The loop waits on exactly one of two events per iteration — interval
// elapsed or cancellation — and runs each tick to completion before waiting
// again. There are no overlapping ticks: the buffer and the heartbeat timer
// are owned by the loop alone, so no locking is needed anywhere in this
// package.
package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/frhanjav/vm-monitor/internal/monitor"
)

// heartbeatInterval is the cadence of liveness calls, independent of
// batching. A failed heartbeat is re-attempted on the next tick once the
// interval has again elapsed — no backoff, retry cadence equals the sampling
// interval.
const heartbeatInterval = 5 * time.Minute

// Sampler is the metrics source consumed by the scheduler.
type Sampler interface {
	Sample(ctx context.Context) monitor.SystemMetrics
}

// Collector is the delivery surface the scheduler drives.
type Collector interface {
	SendMetricsBatch(ctx context.Context, metrics []monitor.SystemMetrics) error
	SendHeartbeat(ctx context.Context) error
}

// Agent runs the sampling/delivery loop for one monitored instance.
type Agent struct {
	sampler   Sampler
	collector Collector
	logger    *zap.Logger

	interval  time.Duration
	batchSize int

	buf           *Buffer
	lastHeartbeat time.Time

	// now is the clock used for heartbeat scheduling; overridden in tests.
	now func() time.Time
}

// New creates an Agent with the given sampling interval and batch size.
func New(sampler Sampler, collector Collector, interval time.Duration, batchSize int, logger *zap.Logger) *Agent {
	return &Agent{
		sampler:   sampler,
		collector: collector,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		buf:       NewBuffer(),
		now:       time.Now,
	}
}

// Run executes the loop until ctx is cancelled. On cancellation, any
// undelivered snapshots get exactly one best-effort flush attempt — its
// failure is logged, not retried — and then Run returns.
//
// Cancellation is checked only at tick boundaries; a call already in flight
// completes first (bounded by the transport client's timeout).
func (a *Agent) Run(ctx context.Context) {
	a.logger.Info("Agent running",
		zap.Duration("interval", a.interval),
		zap.Int("batch_size", a.batchSize))

	// The heartbeat clock starts now; the first heartbeat goes out one
	// interval after startup, not immediately.
	a.lastHeartbeat = a.now()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

// tick runs one iteration: sample, flush if a batch is ready, heartbeat if
// due. Failures never abort the loop; the next tick re-attempts whatever is
// still pending.
func (a *Agent) tick(ctx context.Context) {
	snapshot := a.sampler.Sample(ctx)
	a.buf.Push(snapshot)
	a.logger.Debug("Collected metrics", zap.Int("buffered", a.buf.Len()))

	if a.buf.AtThreshold(a.batchSize) {
		a.flush(ctx)
	}

	if a.now().Sub(a.lastHeartbeat) >= heartbeatInterval {
		a.heartbeat(ctx)
	}
}

// flush attempts to deliver everything currently buffered. On success the
// buffer is cleared; on failure its content is retained for the next
// threshold crossing, subject to the overflow policy.
func (a *Agent) flush(ctx context.Context) {
	count := a.buf.Len()
	if err := a.collector.SendMetricsBatch(ctx, a.buf.Items()); err != nil {
		a.logger.Error("Failed to send metrics batch",
			zap.Int("count", count),
			zap.Error(err))
		if a.buf.EvictIfOverflowing(a.batchSize) {
			a.logger.Warn("Metrics buffer overflowed, dropping all pending snapshots",
				zap.Int("dropped", count))
		}
		return
	}

	a.logger.Info("Sent metrics batch", zap.Int("count", count))
	a.buf.Clear()
}

// heartbeat attempts a liveness call. The timer advances only on confirmed
// success, so a failure leaves the heartbeat due and the very next tick
// re-attempts it.
func (a *Agent) heartbeat(ctx context.Context) {
	if err := a.collector.SendHeartbeat(ctx); err != nil {
		a.logger.Error("Failed to send heartbeat", zap.Error(err))
		return
	}
	a.logger.Debug("Heartbeat sent")
	a.lastHeartbeat = a.now()
}

// shutdown performs the single best-effort flush of undelivered snapshots.
// The run context is already cancelled here, so the flush uses a fresh
// context bounded only by the transport timeout.
func (a *Agent) shutdown() {
	remaining := a.buf.Drain()
	if len(remaining) == 0 {
		a.logger.Info("Agent shutting down")
		return
	}

	a.logger.Info("Sending remaining metrics before shutdown",
		zap.Int("count", len(remaining)))
	if err := a.collector.SendMetricsBatch(context.Background(), remaining); err != nil {
		a.logger.Error("Failed to send final metrics batch", zap.Error(err))
	} else {
		a.logger.Info("Final metrics batch sent")
	}
	a.logger.Info("Agent shutting down")
}
