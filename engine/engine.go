package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/hupe1980/kvcachego/internal/lru"
	"github.com/hupe1980/kvcachego/objstore"
)

// gcWakeInterval bounds how long the eviction worker sleeps between drains
// even when nobody signals it.
const gcWakeInterval = time.Second

// Config carries the engine parameters.
type Config struct {
	// ModelID segregates key spaces across models. At most 65535 bytes.
	ModelID string
	// BlockSizeTokens is the fixed block granularity B. Must be >= 1.
	BlockSizeTokens uint32
	// CapacityBytes is the soft upper bound on resident payload bytes.
	// Eviction drains above this. Zero means unlimited.
	CapacityBytes uint64
}

// Validate checks the config for caller bugs that no retry can fix.
func (c Config) Validate() error {
	if c.BlockSizeTokens == 0 {
		return ErrInvalidBlockSize
	}
	if len(c.ModelID) > math.MaxUint16 {
		return fmt.Errorf("%w: %d bytes", ErrModelIDTooLong, len(c.ModelID))
	}
	return nil
}

// blockMeta is the per-resident-block bookkeeping.
// Every key in the metadata map is also in the LRU tracker, and vice versa.
type blockMeta struct {
	size uint64
}

// Engine is the KV block cache core: an in-memory index over blocks held in
// a remote object store, with LRU admission and a background eviction worker.
//
// One mutex guards all in-memory state. Critical sections never perform I/O;
// Store, Load and eviction talk to the store with the lock released.
type Engine struct {
	cfg     Config
	store   objstore.ObjectStore
	logger  *slog.Logger
	metrics Metrics

	mu            sync.Mutex
	prefixHWM     map[string]uint32    // prefix hex -> highest contiguous block index
	blockMetadata map[string]blockMeta // object key -> metadata
	order         *lru.Tracker
	usedBytes     uint64
	capacityBytes uint64
	closed        bool

	gcSignal chan struct{}
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates an engine over the given object store and starts its eviction
// worker. The index starts empty: the object store is the persistence layer
// and a process restart pays a cold start.
func New(cfg Config, store objstore.ObjectStore, optFns ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrNilStore
	}

	opts := applyOptions(optFns)

	e := &Engine{
		cfg:           cfg,
		store:         store,
		logger:        opts.logger,
		metrics:       opts.metrics,
		prefixHWM:     make(map[string]uint32),
		blockMetadata: make(map[string]blockMeta),
		order:         lru.New(),
		capacityBytes: cfg.CapacityBytes,
		gcSignal:      make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
	}

	e.wg.Add(1)
	go e.gcLoop()

	e.logger.Debug("engine started",
		"model_id", cfg.ModelID,
		"block_size_tokens", cfg.BlockSizeTokens,
		"capacity_bytes", cfg.CapacityBytes,
	)

	return e, nil
}

// Close stops the eviction worker and waits for it to exit. Safe to call
// more than once. Lookup, Store and Load issued after Close still run against
// the index and the object store; only eviction stops, so usage may then grow
// past the capacity.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	close(e.stopCh)
	e.wg.Wait()

	e.logger.Debug("engine stopped")
	return nil
}

// UsedBytes returns the current sum of resident block sizes.
func (e *Engine) UsedBytes() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usedBytes
}

// CapacityBytes returns the current soft capacity.
func (e *Engine) CapacityBytes() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.capacityBytes
}

// SetCapacityBytes adjusts the soft capacity. Shrinking below current usage
// wakes the eviction worker.
func (e *Engine) SetCapacityBytes(capacity uint64) {
	e.mu.Lock()
	e.capacityBytes = capacity
	over := e.overCapacityLocked()
	e.mu.Unlock()

	if over {
		e.signalGC()
	}
}

// Len returns the number of resident blocks.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.blockMetadata)
}

// overCapacityLocked reports whether usage exceeds a nonzero capacity.
// Callers hold e.mu.
func (e *Engine) overCapacityLocked() bool {
	return e.capacityBytes > 0 && e.usedBytes > e.capacityBytes
}

// signalGC nudges the eviction worker without blocking. The channel holds a
// single pending wake-up; coalescing further signals is fine because the
// worker always drains to capacity.
func (e *Engine) signalGC() {
	select {
	case e.gcSignal <- struct{}{}:
	default:
	}
}

// checkConsistency verifies the LRU/metadata key parity and the used-byte
// accounting. Test hook; takes the lock.
func (e *Engine) checkConsistency() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.order.Len() != len(e.blockMetadata) {
		return fmt.Errorf("lru holds %d keys, metadata holds %d", e.order.Len(), len(e.blockMetadata))
	}
	var sum uint64
	for key, meta := range e.blockMetadata {
		if !e.order.Contains(key) {
			return fmt.Errorf("metadata key %q missing from lru", key)
		}
		sum += meta.size
	}
	if sum != e.usedBytes {
		return fmt.Errorf("used bytes %d, metadata sum %d", e.usedBytes, sum)
	}
	return nil
}
