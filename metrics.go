package kvcachego

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/kvcachego/engine"
)

// MetricsCollector defines the hooks fired on the cache's hot paths.
// Implement it to integrate with monitoring systems; see the metricsprom
// package for a Prometheus-backed implementation.
type MetricsCollector = engine.Metrics

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector = engine.NoopMetrics

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	LookupCount       atomic.Int64
	LookupHits        atomic.Int64
	LookupBlocks      atomic.Int64
	LookupTotalNanos  atomic.Int64
	StoreCount        atomic.Int64
	StoreErrors       atomic.Int64
	StoreBytes        atomic.Int64
	StoreTotalNanos   atomic.Int64
	LoadCount         atomic.Int64
	LoadErrors        atomic.Int64
	LoadBytes         atomic.Int64
	LoadTotalNanos    atomic.Int64
	EvictionCycles    atomic.Int64
	EvictedBlocks     atomic.Int64
	EvictedBytes      atomic.Int64
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(matchedBlocks int, duration time.Duration) {
	b.LookupCount.Add(1)
	b.LookupTotalNanos.Add(duration.Nanoseconds())
	if matchedBlocks > 0 {
		b.LookupHits.Add(1)
		b.LookupBlocks.Add(int64(matchedBlocks))
	}
}

// RecordStore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStore(size int, duration time.Duration, ok bool) {
	b.StoreCount.Add(1)
	b.StoreTotalNanos.Add(duration.Nanoseconds())
	if ok {
		b.StoreBytes.Add(int64(size))
	} else {
		b.StoreErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(size int, duration time.Duration, ok bool) {
	b.LoadCount.Add(1)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	if ok {
		b.LoadBytes.Add(int64(size))
	} else {
		b.LoadErrors.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(blocks int, bytesFreed uint64) {
	b.EvictionCycles.Add(1)
	b.EvictedBlocks.Add(int64(blocks))
	b.EvictedBytes.Add(int64(bytesFreed))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		LookupCount:    b.LookupCount.Load(),
		LookupHits:     b.LookupHits.Load(),
		LookupBlocks:   b.LookupBlocks.Load(),
		LookupAvgNanos: avgNanos(b.LookupTotalNanos.Load(), b.LookupCount.Load()),
		StoreCount:     b.StoreCount.Load(),
		StoreErrors:    b.StoreErrors.Load(),
		StoreBytes:     b.StoreBytes.Load(),
		StoreAvgNanos:  avgNanos(b.StoreTotalNanos.Load(), b.StoreCount.Load()),
		LoadCount:      b.LoadCount.Load(),
		LoadErrors:     b.LoadErrors.Load(),
		LoadBytes:      b.LoadBytes.Load(),
		LoadAvgNanos:   avgNanos(b.LoadTotalNanos.Load(), b.LoadCount.Load()),
		EvictionCycles: b.EvictionCycles.Load(),
		EvictedBlocks:  b.EvictedBlocks.Load(),
		EvictedBytes:   b.EvictedBytes.Load(),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	LookupCount    int64
	LookupHits     int64
	LookupBlocks   int64
	LookupAvgNanos int64
	StoreCount     int64
	StoreErrors    int64
	StoreBytes     int64
	StoreAvgNanos  int64
	LoadCount      int64
	LoadErrors     int64
	LoadBytes      int64
	LoadAvgNanos   int64
	EvictionCycles int64
	EvictedBlocks  int64
	EvictedBytes   int64
}

var _ MetricsCollector = (*BasicMetricsCollector)(nil)
