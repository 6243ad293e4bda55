// Package kvcachego is a shared prefix cache for large-language-model
// key/value tensors, backed by a remote object store.
//
// A decoder serving many requests recomputes identical attention state for
// identical prompt prefixes. This cache chunks that state into fixed-size
// token blocks, addresses each block by a content digest of the exact prefix
// it represents, and stores the payloads in S3, MinIO, or any other
// objstore.ObjectStore. Any worker presenting a matching prefix gets the
// blocks back.
//
// # Quick Start
//
//	cfg := kvcachego.DefaultConfig()
//	cfg.ModelID = "llama-70b"
//	cfg.ApplyEnvDefaults()
//
//	cache, err := kvcachego.Open(ctx, cfg)
//	if err != nil { ... }
//	defer cache.Close()
//
//	res := cache.Lookup(tokens)
//	for _, h := range res.Handles {
//	    data, ok := cache.Load(ctx, h)
//	    ...
//	}
//	cache.Store(ctx, tokens, nextIndex, blockBytes)
//
// Or bring your own store:
//
//	cache, err := kvcachego.New(cfg, objstore.NewMemoryStore())
//
// # Semantics
//
// Lookup is a pure index read and never touches the network. Store writes to
// the object store first and only then updates the index, so a failed write
// leaves no trace. Resident bytes are kept under a soft capacity by a
// background eviction worker that deletes least-recently-used blocks; a
// lookup handle always refers to a block that was resident when the lookup
// returned, though a Load may still race with eviction and the caller must
// tolerate either outcome.
//
// Blocks are opaque byte sequences: no compression, encryption or tensor
// serialization happens here. There is no cross-process coordination beyond
// what the object store provides; concurrent writers to the same key race at
// the store and the last writer wins.
package kvcachego
