package engine

import (
	"context"
	"time"

	"github.com/hupe1980/kvcachego/digest"
	"github.com/hupe1980/kvcachego/model"
)

// Lookup resolves the longest contiguous cached prefix of tokens.
//
// The scan is longest-first in steps of the block size: the first prefix
// whose high-water mark exists wins. Handles are taken from block metadata;
// if an expected block's metadata is missing because eviction got to it
// since the mark was advanced, the match is truncated just before the gap so
// every returned handle refers to a resident block at the moment of return.
//
// Lookup never performs I/O.
func (e *Engine) Lookup(tokens []uint32) model.LookupResult {
	start := time.Now()
	res := e.lookup(tokens)
	e.metrics.RecordLookup(len(res.Handles), time.Since(start))
	return res
}

func (e *Engine) lookup(tokens []uint32) model.LookupResult {
	b := e.cfg.BlockSizeTokens
	n := uint32(len(tokens))
	blocks := n / b
	if blocks == 0 {
		return model.LookupResult{}
	}

	// Every block is addressed under the digest of the prefix ending at that
	// block, so the whole chain is computed up front, outside the lock.
	hexes := make([]string, blocks)
	for i := uint32(0); i < blocks; i++ {
		pkey, err := digest.MakePrefixKey(tokens[:(i+1)*b], b, e.cfg.ModelID)
		if err != nil {
			// Config validation already bounds the model id; nothing
			// recoverable remains, report a miss.
			e.logger.Error("prefix digest failed", "error", err)
			return model.LookupResult{}
		}
		hexes[i] = pkey.Hex()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for kb := blocks; kb > 0; kb-- {
		hwm, ok := e.prefixHWM[hexes[kb-1]]
		if !ok {
			continue
		}

		matched := (hwm + 1) * b
		if kb*b < matched {
			matched = kb * b
		}

		res := model.LookupResult{
			MatchedTokens: matched,
			Handles:       make([]model.BlockRef, 0, matched/b),
		}
		for i := uint32(0); i < matched/b; i++ {
			key := digest.ObjectKey(e.cfg.ModelID, b, hexes[i], i)
			meta, ok := e.blockMetadata[key]
			if !ok {
				// A middle block was evicted since the mark advanced.
				// Return what is contiguously resident from block 0.
				if i == 0 {
					return model.LookupResult{}
				}
				res.MatchedTokens = i * b
				return res
			}
			res.Handles = append(res.Handles, model.BlockRef{
				ObjectKey: key,
				Size:      meta.size,
				Index:     i,
			})
		}
		return res
	}

	return model.LookupResult{}
}

// Store writes one block for the prefix ending at blockIndex and records it
// in the index.
//
// The object-store put happens before any index mutation, so a failed put
// leaves the index untouched and the caller may simply retry. The prefix
// high-water mark advances only on contiguous extension: blockIndex 0 when
// the prefix is unknown, or current mark + 1. Out-of-order stores keep their
// bytes resident but never advance the prefix view.
//
// Returns true iff the store write succeeded.
func (e *Engine) Store(ctx context.Context, tokens []uint32, blockIndex uint32, data []byte) bool {
	start := time.Now()
	ok := e.storeBlock(ctx, tokens, blockIndex, data)
	e.metrics.RecordStore(len(data), time.Since(start), ok)
	return ok
}

func (e *Engine) storeBlock(ctx context.Context, tokens []uint32, blockIndex uint32, data []byte) bool {
	b := e.cfg.BlockSizeTokens
	prefixTokens := (uint64(blockIndex) + 1) * uint64(b)
	if uint64(len(tokens)) < prefixTokens {
		return false
	}

	pkey, err := digest.MakePrefixKey(tokens[:prefixTokens], b, e.cfg.ModelID)
	if err != nil {
		e.logger.Error("prefix digest failed", "error", err)
		return false
	}
	hex := pkey.Hex()
	key := digest.ObjectKey(e.cfg.ModelID, b, hex, blockIndex)

	// Contiguous extension is judged against the parent prefix, one block
	// shorter. Its digest is computed here so the critical section stays
	// free of hashing.
	var parentHex string
	if blockIndex > 0 {
		parent, err := digest.MakePrefixKey(tokens[:prefixTokens-uint64(b)], b, e.cfg.ModelID)
		if err != nil {
			e.logger.Error("prefix digest failed", "error", err)
			return false
		}
		parentHex = parent.Hex()
	}

	if err := e.store.Put(ctx, key, data); err != nil {
		e.logger.Debug("store put failed", "key", key, "error", err)
		return false
	}

	size := uint64(len(data))

	e.mu.Lock()

	if meta, ok := e.blockMetadata[key]; ok {
		e.usedBytes -= meta.size
		e.usedBytes += size
		e.blockMetadata[key] = blockMeta{size: size}
		e.order.Touch(key)
	} else {
		e.blockMetadata[key] = blockMeta{size: size}
		e.order.Touch(key)
		e.usedBytes += size
	}

	if blockIndex == 0 {
		e.prefixHWM[hex] = 0
	} else if h, ok := e.prefixHWM[parentHex]; ok && h == blockIndex-1 {
		e.prefixHWM[hex] = blockIndex
	}

	over := e.overCapacityLocked()
	e.mu.Unlock()

	if over {
		e.signalGC()
	}

	return true
}

// Load fetches the full payload of one block.
//
// On success the block's LRU position is refreshed if it is still resident.
// A concurrent eviction may have removed the metadata between Lookup and
// Load; the touch is then a no-op but the loaded bytes are still returned,
// so callers must accept that Load can race with eviction.
//
// A failed get leaves the index untouched: the object may still exist and
// recover on retry.
func (e *Engine) Load(ctx context.Context, ref model.BlockRef) ([]byte, bool) {
	start := time.Now()

	data, err := e.store.Get(ctx, ref.ObjectKey)
	if err != nil {
		e.logger.Debug("load get failed", "key", ref.ObjectKey, "error", err)
		e.metrics.RecordLoad(0, time.Since(start), false)
		return nil, false
	}

	e.mu.Lock()
	if _, ok := e.blockMetadata[ref.ObjectKey]; ok {
		e.order.Touch(ref.ObjectKey)
	}
	e.mu.Unlock()

	e.metrics.RecordLoad(len(data), time.Since(start), true)
	return data, true
}
