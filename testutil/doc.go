// Package testutil provides testing utilities for kvcachego.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe random source and helpers for
// generating token sequences and block payloads.
//
// # Token Generation
//
//	rng := testutil.NewRNG(seed)
//	tokens := rng.TokenSequence(4, 256, 100_000) // 4 full blocks
//	pool := rng.TokenPool(10_000, 8, 256, 100_000)
package testutil
