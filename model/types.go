package model

import "fmt"

// BlockRef is a handle to one cached block, resolved by Lookup and consumed
// by Load. It carries everything needed to fetch the block without touching
// the index again.
type BlockRef struct {
	// ObjectKey is the store key the block payload lives under.
	ObjectKey string
	// Size is the payload size in bytes at the time of resolution.
	Size uint64
	// Index is the block's position within its prefix, starting at 0.
	Index uint32
}

// String returns a compact representation for logs.
func (r BlockRef) String() string {
	return fmt.Sprintf("BlockRef(%s, %d bytes, #%d)", r.ObjectKey, r.Size, r.Index)
}

// LookupResult is the outcome of a prefix lookup.
//
// MatchedTokens is always a multiple of the block size, and Handles holds one
// BlockRef per matched block in index order. A miss is the zero value.
type LookupResult struct {
	MatchedTokens uint32
	Handles       []BlockRef
}
