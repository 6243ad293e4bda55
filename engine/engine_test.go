package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/kvcachego/model"
	"github.com/hupe1980/kvcachego/objstore"
)

// tokensT is the canonical 8-token sequence used throughout, with B = 4 it
// covers exactly two blocks.
var tokensT = []uint32{1, 2, 3, 4, 5, 6, 7, 8}

func newTestEngine(t *testing.T, capacity uint64) (*Engine, *objstore.MemoryStore) {
	t.Helper()

	store := objstore.NewMemoryStore()
	e, err := New(Config{
		ModelID:         "m",
		BlockSizeTokens: 4,
		CapacityBytes:   capacity,
	}, store)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, e.Close()) })

	return e, store
}

func TestNew_Validation(t *testing.T) {
	store := objstore.NewMemoryStore()

	t.Run("ZeroBlockSize", func(t *testing.T) {
		_, err := New(Config{ModelID: "m"}, store)
		require.ErrorIs(t, err, ErrInvalidBlockSize)
	})

	t.Run("NilStore", func(t *testing.T) {
		_, err := New(Config{ModelID: "m", BlockSizeTokens: 4}, nil)
		require.ErrorIs(t, err, ErrNilStore)
	})

	t.Run("ModelIDTooLong", func(t *testing.T) {
		long := make([]byte, 65536)
		_, err := New(Config{ModelID: string(long), BlockSizeTokens: 4}, store)
		require.ErrorIs(t, err, ErrModelIDTooLong)
	})
}

func TestLookup_FreshEngineMisses(t *testing.T) {
	e, _ := newTestEngine(t, 1<<20)

	res := e.Lookup(tokensT)
	assert.Equal(t, uint32(0), res.MatchedTokens)
	assert.Empty(t, res.Handles)
}

func TestLookup_ShortInputMisses(t *testing.T) {
	e, _ := newTestEngine(t, 1<<20)
	require.True(t, e.Store(context.Background(), tokensT, 0, []byte("a")))

	// Fewer tokens than one block rounds down to zero candidates.
	res := e.Lookup(tokensT[:3])
	assert.Equal(t, uint32(0), res.MatchedTokens)
	assert.Empty(t, res.Handles)
}

func TestStoreLookupLoad_SingleBlock(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 1<<20)

	require.True(t, e.Store(ctx, tokensT, 0, []byte("a")))

	res := e.Lookup(tokensT[:4])
	require.Equal(t, uint32(4), res.MatchedTokens)
	require.Len(t, res.Handles, 1)
	assert.Equal(t, uint32(0), res.Handles[0].Index)
	assert.Equal(t, uint64(1), res.Handles[0].Size)

	data, ok := e.Load(ctx, res.Handles[0])
	require.True(t, ok)
	assert.Equal(t, []byte("a"), data)

	require.NoError(t, e.checkConsistency())
}

func TestStoreLookupLoad_TwoBlocks(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 1<<20)

	require.True(t, e.Store(ctx, tokensT, 0, []byte("a")))
	require.True(t, e.Store(ctx, tokensT, 1, []byte("b")))

	res := e.Lookup(tokensT)
	require.Equal(t, uint32(8), res.MatchedTokens)
	require.Len(t, res.Handles, 2)

	want := [][]byte{[]byte("a"), []byte("b")}
	for i, h := range res.Handles {
		assert.Equal(t, uint32(i), h.Index)
		data, ok := e.Load(ctx, h)
		require.True(t, ok)
		assert.Equal(t, want[i], data)
	}
}

func TestLookup_TrailingPartialBlockIgnored(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 1<<20)

	require.True(t, e.Store(ctx, tokensT, 0, []byte("a")))

	// 6 tokens round down to one block worth of candidates.
	res := e.Lookup(tokensT[:6])
	assert.Equal(t, uint32(4), res.MatchedTokens)
	assert.Len(t, res.Handles, 1)
}

func TestStore_SkippedIndexDoesNotAdvanceMark(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t, 1<<20)

	require.True(t, e.Store(ctx, tokensT, 0, []byte("a")))

	long := append(append([]uint32{}, tokensT...), 9, 10, 11, 12)
	require.True(t, e.Store(ctx, long, 2, []byte("c")))

	// The index-2 block is resident but unreachable through Lookup.
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 2, e.Len())

	res := e.Lookup(long)
	assert.Equal(t, uint32(4), res.MatchedTokens)
	require.Len(t, res.Handles, 1)
	assert.Equal(t, uint32(0), res.Handles[0].Index)

	require.NoError(t, e.checkConsistency())
}

func TestStore_OutOfOrderThenContiguous(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 1<<20)

	// Index 1 before index 0: no mark exists, nothing matches.
	require.True(t, e.Store(ctx, tokensT, 1, []byte("b")))
	res := e.Lookup(tokensT)
	assert.Equal(t, uint32(0), res.MatchedTokens)

	// Index 0 creates the mark, but it stays at 0: advancing past an
	// earlier out-of-order store requires re-storing index 1.
	require.True(t, e.Store(ctx, tokensT, 0, []byte("a")))
	res = e.Lookup(tokensT)
	assert.Equal(t, uint32(4), res.MatchedTokens)

	require.True(t, e.Store(ctx, tokensT, 1, []byte("b")))
	res = e.Lookup(tokensT)
	assert.Equal(t, uint32(8), res.MatchedTokens)
}

func TestStore_PreconditionTooFewTokens(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t, 1<<20)

	assert.False(t, e.Store(ctx, tokensT[:4], 1, []byte("b")))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, uint64(0), e.UsedBytes())
}

func TestStore_OverwriteUpdatesAccounting(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 100)

	require.True(t, e.Store(ctx, tokensT, 0, []byte("x")))
	require.True(t, e.Store(ctx, tokensT, 0, []byte("yy")))

	assert.Equal(t, uint64(2), e.UsedBytes())
	assert.Equal(t, 1, e.Len())

	res := e.Lookup(tokensT[:4])
	require.Len(t, res.Handles, 1)
	assert.Equal(t, uint64(2), res.Handles[0].Size)

	data, ok := e.Load(ctx, res.Handles[0])
	require.True(t, ok)
	assert.Equal(t, []byte("yy"), data)

	require.NoError(t, e.checkConsistency())
}

func TestEviction_DrainsToCapacity(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t, 1)

	require.True(t, e.Store(ctx, tokensT, 0, []byte("a")))
	require.True(t, e.Store(ctx, tokensT, 1, []byte("bb")))

	require.Eventually(t, func() bool {
		return e.UsedBytes() <= 1
	}, 5*time.Second, 10*time.Millisecond)

	// Block 0 was the LRU tail and must be gone, from the index and from
	// the store alike.
	res := e.Lookup(tokensT[:4])
	assert.Equal(t, uint32(0), res.MatchedTokens)
	assert.Empty(t, res.Handles)

	require.Eventually(t, func() bool {
		return store.Len() <= 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, e.checkConsistency())
}

func TestEviction_MiddleGapTruncatesLookup(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 1<<20)

	long := append(append([]uint32{}, tokensT...), 9, 10, 11, 12)
	require.True(t, e.Store(ctx, long, 0, []byte("aa")))
	require.True(t, e.Store(ctx, long, 1, []byte("bb")))
	require.True(t, e.Store(ctx, long, 2, []byte("cc")))

	// Refresh blocks 0 and 2 so block 1 is the LRU tail, then shrink the
	// capacity enough to evict exactly one block.
	res := e.Lookup(long)
	require.Len(t, res.Handles, 3)
	_, ok := e.Load(ctx, res.Handles[0])
	require.True(t, ok)
	_, ok = e.Load(ctx, res.Handles[2])
	require.True(t, ok)

	e.SetCapacityBytes(4)
	require.Eventually(t, func() bool {
		return e.UsedBytes() <= 4
	}, 5*time.Second, 10*time.Millisecond)

	// The mark still says 2, but the match truncates at the gap.
	res = e.Lookup(long)
	assert.Equal(t, uint32(4), res.MatchedTokens)
	require.Len(t, res.Handles, 1)
	assert.Equal(t, uint32(0), res.Handles[0].Index)

	require.NoError(t, e.checkConsistency())
}

func TestCapacityZero_DisablesEviction(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t, 0)

	require.True(t, e.Store(ctx, tokensT, 0, []byte("aa")))
	require.True(t, e.Store(ctx, tokensT, 1, []byte("bb")))

	e.drain()

	assert.Equal(t, 2, e.Len())
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, uint64(4), e.UsedBytes())
}

func TestSetCapacityBytes_GrowKeepsUsage(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, 1<<20)

	require.True(t, e.Store(ctx, tokensT, 0, []byte("aaaa")))
	assert.Equal(t, uint64(1<<20), e.CapacityBytes())

	e.SetCapacityBytes(1 << 21)
	assert.Equal(t, uint64(1<<21), e.CapacityBytes())
	assert.Equal(t, uint64(4), e.UsedBytes())
}

func TestClose_Idempotent(t *testing.T) {
	store := objstore.NewMemoryStore()
	e, err := New(Config{ModelID: "m", BlockSizeTokens: 4, CapacityBytes: 1 << 20}, store)
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
}

// faultyStore wraps a MemoryStore with switchable failure injection.
type faultyStore struct {
	*objstore.MemoryStore

	failGet    atomic.Bool
	failPut    atomic.Bool
	failDelete atomic.Bool
	deletes    atomic.Int64
}

var errInjected = errors.New("injected store failure")

func (f *faultyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet.Load() {
		return nil, errInjected
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *faultyStore) Put(ctx context.Context, key string, data []byte) error {
	if f.failPut.Load() {
		return errInjected
	}
	return f.MemoryStore.Put(ctx, key, data)
}

func (f *faultyStore) Delete(ctx context.Context, key string) error {
	f.deletes.Add(1)
	if f.failDelete.Load() {
		return errInjected
	}
	return f.MemoryStore.Delete(ctx, key)
}

func TestStore_PutFailureLeavesIndexUntouched(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{MemoryStore: objstore.NewMemoryStore()}
	e, err := New(Config{ModelID: "m", BlockSizeTokens: 4, CapacityBytes: 1 << 20}, store)
	require.NoError(t, err)
	defer e.Close()

	store.failPut.Store(true)
	assert.False(t, e.Store(ctx, tokensT, 0, []byte("a")))
	assert.Equal(t, uint64(0), e.UsedBytes())
	assert.Equal(t, 0, e.Len())

	res := e.Lookup(tokensT[:4])
	assert.Equal(t, uint32(0), res.MatchedTokens)

	// A retry after the fault clears succeeds cleanly.
	store.failPut.Store(false)
	assert.True(t, e.Store(ctx, tokensT, 0, []byte("a")))
	res = e.Lookup(tokensT[:4])
	assert.Equal(t, uint32(4), res.MatchedTokens)
}

func TestLoad_GetFailureKeepsMetadata(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{MemoryStore: objstore.NewMemoryStore()}
	e, err := New(Config{ModelID: "m", BlockSizeTokens: 4, CapacityBytes: 1 << 20}, store)
	require.NoError(t, err)
	defer e.Close()

	require.True(t, e.Store(ctx, tokensT, 0, []byte("a")))
	res := e.Lookup(tokensT[:4])
	require.Len(t, res.Handles, 1)

	store.failGet.Store(true)
	_, ok := e.Load(ctx, res.Handles[0])
	assert.False(t, ok)

	// The block stays resident and recovers on retry.
	assert.Equal(t, 1, e.Len())
	store.failGet.Store(false)
	data, ok := e.Load(ctx, res.Handles[0])
	require.True(t, ok)
	assert.Equal(t, []byte("a"), data)
}

func TestEviction_DeleteFailureLeavesOrphan(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{MemoryStore: objstore.NewMemoryStore()}
	e, err := New(Config{ModelID: "m", BlockSizeTokens: 4, CapacityBytes: 1}, store)
	require.NoError(t, err)
	defer e.Close()

	store.failDelete.Store(true)
	require.True(t, e.Store(ctx, tokensT, 0, []byte("aa")))

	require.Eventually(t, func() bool {
		return e.UsedBytes() == 0 && store.deletes.Load() >= 1
	}, 5*time.Second, 10*time.Millisecond)

	// The index is clean while the object lingers at the store. No retry
	// is issued for it.
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, 1, store.MemoryStore.Len())
	require.NoError(t, e.checkConsistency())
}

func TestLoad_AfterEvictionStillReturnsBytes(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{MemoryStore: objstore.NewMemoryStore()}
	e, err := New(Config{ModelID: "m", BlockSizeTokens: 4, CapacityBytes: 1 << 20}, store)
	require.NoError(t, err)
	defer e.Close()

	require.True(t, e.Store(ctx, tokensT, 0, []byte("aa")))
	res := e.Lookup(tokensT[:4])
	require.Len(t, res.Handles, 1)

	// Simulate eviction landing between Lookup and Load: the metadata is
	// gone but the object still exists because the delete is failing.
	store.failDelete.Store(true)
	e.SetCapacityBytes(1)
	require.Eventually(t, func() bool {
		return e.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)

	data, ok := e.Load(ctx, res.Handles[0])
	require.True(t, ok)
	assert.Equal(t, []byte("aa"), data)
}

type recordingMetrics struct {
	lookups   atomic.Int64
	stores    atomic.Int64
	loads     atomic.Int64
	evictions atomic.Int64
}

func (m *recordingMetrics) RecordLookup(int, time.Duration)      { m.lookups.Add(1) }
func (m *recordingMetrics) RecordStore(int, time.Duration, bool) { m.stores.Add(1) }
func (m *recordingMetrics) RecordLoad(int, time.Duration, bool)  { m.loads.Add(1) }
func (m *recordingMetrics) RecordEviction(int, uint64)           { m.evictions.Add(1) }

func TestMetricsHooks(t *testing.T) {
	ctx := context.Background()
	metrics := &recordingMetrics{}
	store := objstore.NewMemoryStore()
	e, err := New(Config{ModelID: "m", BlockSizeTokens: 4, CapacityBytes: 1}, store,
		WithMetrics(metrics))
	require.NoError(t, err)
	defer e.Close()

	require.True(t, e.Store(ctx, tokensT, 0, []byte("aa")))
	e.Lookup(tokensT)
	e.Load(ctx, model.BlockRef{ObjectKey: "nope"})

	assert.Equal(t, int64(1), metrics.stores.Load())
	assert.Equal(t, int64(1), metrics.lookups.Load())
	assert.Equal(t, int64(1), metrics.loads.Load())

	require.Eventually(t, func() bool {
		return metrics.evictions.Load() >= 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestConcurrentStoreLoad(t *testing.T) {
	const (
		goroutines = 8
		opsEach    = 1000
		prefixes   = 16
	)

	ctx := context.Background()
	e, _ := newTestEngine(t, 1<<20)

	// Shared pool of prefixes, each long enough for four blocks.
	pool := make([][]uint32, prefixes)
	for i := range pool {
		pool[i] = make([]uint32, 16)
		for j := range pool[i] {
			pool[i][j] = uint32(i*1000 + j)
		}
	}

	var ops atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < opsEach; i++ {
				tokens := pool[rng.Intn(prefixes)]
				if rng.Intn(2) == 0 {
					e.Store(ctx, tokens, uint32(rng.Intn(4)), []byte{byte(i)})
				} else {
					res := e.Lookup(tokens)
					assert.Zero(t, res.MatchedTokens%4)
					assert.LessOrEqual(t, res.MatchedTokens, uint32(16))
					if len(res.Handles) > 0 {
						e.Load(ctx, res.Handles[rng.Intn(len(res.Handles))])
					}
				}
				ops.Add(1)
			}
		}(int64(g))
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*opsEach), ops.Load())
	require.NoError(t, e.checkConsistency())
}

func TestConcurrentStoreWithEviction(t *testing.T) {
	const goroutines = 4

	ctx := context.Background()
	e, _ := newTestEngine(t, 64)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			tokens := make([]uint32, 8)
			for i := 0; i < 500; i++ {
				for j := range tokens {
					tokens[j] = uint32(rng.Intn(32))
				}
				e.Store(ctx, tokens, uint32(rng.Intn(2)), make([]byte, 1+rng.Intn(16)))
				if rng.Intn(4) == 0 {
					res := e.Lookup(tokens)
					if len(res.Handles) > 0 {
						e.Load(ctx, res.Handles[0])
					}
				}
			}
		}(int64(g))
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return e.UsedBytes() <= 64
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, e.checkConsistency())
}
