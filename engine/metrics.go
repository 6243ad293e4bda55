package engine

import "time"

// Metrics defines the hooks the engine fires on its hot paths. Implement it
// to integrate with monitoring systems; all methods may be called
// concurrently.
type Metrics interface {
	// RecordLookup is called after each lookup with the number of handles
	// resolved (0 on a miss) and the time spent.
	RecordLookup(matchedBlocks int, duration time.Duration)

	// RecordStore is called after each store attempt with the payload size,
	// the time spent, and whether the store-side write succeeded.
	RecordStore(size int, duration time.Duration, ok bool)

	// RecordLoad is called after each load attempt with the payload size
	// (0 on failure), the time spent, and the outcome.
	RecordLoad(size int, duration time.Duration, ok bool)

	// RecordEviction is called once per drain cycle that evicted anything,
	// with the number of blocks and bytes released.
	RecordEviction(blocks int, bytesFreed uint64)
}

// NoopMetrics is a Metrics implementation that does nothing. It is the
// default when no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) RecordLookup(int, time.Duration)      {}
func (NoopMetrics) RecordStore(int, time.Duration, bool) {}
func (NoopMetrics) RecordLoad(int, time.Duration, bool)  {}
func (NoopMetrics) RecordEviction(int, uint64)           {}

var _ Metrics = NoopMetrics{}
