package metricsprom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/kvcachego/engine"
)

// Adapter implements engine.Metrics and exports Prometheus counters and
// histograms. Safe for concurrent use; all Prometheus metric types are
// goroutine-safe.
type Adapter struct {
	lookupHits    prometheus.Counter
	lookupMisses  prometheus.Counter
	lookupBlocks  prometheus.Counter
	lookupSec     prometheus.Histogram
	storeTotal    *prometheus.CounterVec
	storeBytes    prometheus.Counter
	storeSec      prometheus.Histogram
	loadTotal     *prometheus.CounterVec
	loadBytes     prometheus.Counter
	loadSec       prometheus.Histogram
	evictedBlocks prometheus.Counter
	evictedBytes  prometheus.Counter
}

// New constructs a Prometheus metrics adapter.
//   - reg:         registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:     Prometheus namespace and subsystem
//   - constLabels: static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		lookupHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "lookup_hits_total",
			Help:        "Lookups that matched at least one block",
			ConstLabels: constLabels,
		}),
		lookupMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "lookup_misses_total",
			Help:        "Lookups that matched nothing",
			ConstLabels: constLabels,
		}),
		lookupBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "lookup_blocks_total",
			Help:        "Blocks resolved across all lookups",
			ConstLabels: constLabels,
		}),
		lookupSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "lookup_duration_seconds",
			Help:        "Lookup latency",
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 10),
			ConstLabels: constLabels,
		}),
		storeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "store_total",
				Help:        "Block store attempts by outcome",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		storeBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "store_bytes_total",
			Help:        "Payload bytes written to the object store",
			ConstLabels: constLabels,
		}),
		storeSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "store_duration_seconds",
			Help:        "Store latency including object store round trip",
			Buckets:     prometheus.ExponentialBuckets(1e-4, 4, 10),
			ConstLabels: constLabels,
		}),
		loadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "load_total",
				Help:        "Block load attempts by outcome",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		loadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "load_bytes_total",
			Help:        "Payload bytes read from the object store",
			ConstLabels: constLabels,
		}),
		loadSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "load_duration_seconds",
			Help:        "Load latency including object store round trip",
			Buckets:     prometheus.ExponentialBuckets(1e-4, 4, 10),
			ConstLabels: constLabels,
		}),
		evictedBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "evicted_blocks_total",
			Help:        "Blocks released by the eviction worker",
			ConstLabels: constLabels,
		}),
		evictedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "evicted_bytes_total",
			Help:        "Bytes released by the eviction worker",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(
		a.lookupHits, a.lookupMisses, a.lookupBlocks, a.lookupSec,
		a.storeTotal, a.storeBytes, a.storeSec,
		a.loadTotal, a.loadBytes, a.loadSec,
		a.evictedBlocks, a.evictedBytes,
	)
	return a
}

// RecordLookup implements engine.Metrics.
func (a *Adapter) RecordLookup(matchedBlocks int, duration time.Duration) {
	if matchedBlocks > 0 {
		a.lookupHits.Inc()
		a.lookupBlocks.Add(float64(matchedBlocks))
	} else {
		a.lookupMisses.Inc()
	}
	a.lookupSec.Observe(duration.Seconds())
}

// RecordStore implements engine.Metrics.
func (a *Adapter) RecordStore(size int, duration time.Duration, ok bool) {
	a.storeTotal.WithLabelValues(outcome(ok)).Inc()
	if ok {
		a.storeBytes.Add(float64(size))
	}
	a.storeSec.Observe(duration.Seconds())
}

// RecordLoad implements engine.Metrics.
func (a *Adapter) RecordLoad(size int, duration time.Duration, ok bool) {
	a.loadTotal.WithLabelValues(outcome(ok)).Inc()
	if ok {
		a.loadBytes.Add(float64(size))
	}
	a.loadSec.Observe(duration.Seconds())
}

// RecordEviction implements engine.Metrics.
func (a *Adapter) RecordEviction(blocks int, bytesFreed uint64) {
	a.evictedBlocks.Add(float64(blocks))
	a.evictedBytes.Add(float64(bytesFreed))
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

var _ engine.Metrics = (*Adapter)(nil)
