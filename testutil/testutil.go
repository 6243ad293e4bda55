package testutil

import (
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint32 returns a pseudo-random uint32.
func (r *RNG) Uint32() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint32()
}

// Float64 returns, as a float64, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// TokenSequence returns a random token sequence spanning numBlocks full
// blocks of blockSize tokens. Token values stay below maxToken.
func (r *RNG) TokenSequence(numBlocks int, blockSize uint32, maxToken uint32) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokenSequence(numBlocks, blockSize, maxToken)
}

// TokenPool pre-generates count token sequences, each spanning between 1 and
// maxBlocks full blocks. Locks only once per call (preferred over calling
// TokenSequence in a loop).
func (r *RNG) TokenPool(count, maxBlocks int, blockSize uint32, maxToken uint32) [][]uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool := make([][]uint32, count)
	for i := range pool {
		pool[i] = r.tokenSequence(1+r.rand.Intn(maxBlocks), blockSize, maxToken)
	}
	return pool
}

func (r *RNG) tokenSequence(numBlocks int, blockSize uint32, maxToken uint32) []uint32 {
	tokens := make([]uint32, numBlocks*int(blockSize))
	for i := range tokens {
		tokens[i] = uint32(r.rand.Intn(int(maxToken)))
	}
	return tokens
}

// Payload returns a byte slice of the given size filled with fill.
func Payload(size int, fill byte) []byte {
	p := make([]byte, size)
	for i := range p {
		p[i] = fill
	}
	return p
}
