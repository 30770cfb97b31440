package corrdist

import "sync/atomic"

// MetricsSink receives diagnostic events from the distance query path.
//
// The surrounding system uses the count of distance computations to profile
// clustering runs. The sink is injectable so tests and pipelines can isolate
// counts per run instead of sharing process-wide mutable state; it has no
// correctness role.
type MetricsSink interface {
	// DistanceComputed is invoked once per LocallyWeightedDistance.Distance
	// call, including calls that fail. Implementations must be safe for
	// concurrent use.
	DistanceComputed()
}

// Compile-time checks that both sinks implement MetricsSink
var (
	_ MetricsSink = (*CallCounter)(nil)
	_ MetricsSink = nopMetrics{}
)

// CallCounter is the standard MetricsSink: a monotonic atomic counter.
// The zero value is ready to use.
type CallCounter struct {
	n atomic.Uint64
}

// DistanceComputed increments the counter.
func (c *CallCounter) DistanceComputed() {
	c.n.Add(1)
}

// Count returns the number of distance computations observed so far.
func (c *CallCounter) Count() uint64 {
	return c.n.Load()
}

// Reset zeroes the counter.
func (c *CallCounter) Reset() {
	c.n.Store(0)
}

// nopMetrics discards all events. Used when no sink has been injected so the
// hot path never branches on nil.
type nopMetrics struct{}

func (nopMetrics) DistanceComputed() {}
