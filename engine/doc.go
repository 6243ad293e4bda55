// Package engine implements the core of the shared KV block cache: the
// in-memory index mapping token prefixes to stored blocks, LRU admission and
// eviction under a byte budget, and the background worker that drains
// over-capacity bytes by deleting LRU tails from the object store.
//
// # Index shape
//
// Two maps under one mutex:
//
//   - prefix high-water marks: for a prefix digest, the highest block index
//     such that blocks 0..hwm were stored contiguously at some point. Every
//     prefix length has its own digest and its own entry; a contiguous store
//     records the advance under the digest of the one-block-longer prefix.
//   - block metadata: object key -> payload size, paired one-to-one with the
//     LRU tracker. A block's object key embeds the digest of the prefix that
//     ends at it.
//
// There is no reverse index from a block to the prefixes containing it (the
// relation is many-to-many: block 0 is shared by every prefix with the same
// leading tokens), so eviction does not retract high-water marks. Lookup
// compensates by truncating its match at the first metadata gap, which keeps
// the contract that every returned handle is resident at the moment of
// return, at the cost of occasional shorter-than-mark matches.
//
// # Concurrency
//
// The engine may be called from many goroutines. Critical sections are short
// and free of I/O; store puts, load gets and eviction deletes all run with
// the lock released. Load can race with eviction: the bytes still come back,
// only the LRU refresh degrades to a no-op.
package engine
