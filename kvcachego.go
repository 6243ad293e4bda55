package kvcachego

import (
	"context"

	"github.com/hupe1980/kvcachego/engine"
	"github.com/hupe1980/kvcachego/model"
	"github.com/hupe1980/kvcachego/objstore"
	"github.com/hupe1980/kvcachego/objstore/s3store"
)

// BlockRef is a handle to one cached block, usable as input to Load.
type BlockRef = model.BlockRef

// LookupResult is the outcome of a prefix lookup.
type LookupResult = model.LookupResult

// KVCache is the public handle to the cache. Use it through a pointer; the
// zero value is not usable.
type KVCache struct {
	engine *engine.Engine
}

// New creates a cache over the given object store.
func New(cfg Config, store objstore.ObjectStore, optFns ...Option) (*KVCache, error) {
	opts := applyOptions(optFns)

	engineOpts := []engine.Option{
		engine.WithLogger(opts.logger.Logger),
		engine.WithMetrics(opts.metricsCollector),
	}

	eng, err := engine.New(engine.Config{
		ModelID:         cfg.ModelID,
		BlockSizeTokens: cfg.BlockSizeTokens,
		CapacityBytes:   cfg.CapacityBytes,
	}, store, engineOpts...)
	if err != nil {
		return nil, err
	}

	return &KVCache{engine: eng}, nil
}

// Open creates a cache backed by the S3 endpoint described in cfg. Call
// cfg.ApplyEnvDefaults first to pick up KVC_* environment overrides.
func Open(ctx context.Context, cfg Config, optFns ...Option) (*KVCache, error) {
	client, err := s3store.NewClient(ctx, s3store.Options{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		UsePathStyle:    cfg.PathStyle(),
	})
	if err != nil {
		return nil, err
	}

	return New(cfg, s3store.NewStore(client, cfg.S3Bucket), optFns...)
}

// Lookup resolves the longest contiguous cached prefix of tokens. It
// consults only the in-memory index and never performs I/O. A miss returns
// the zero LookupResult.
func (c *KVCache) Lookup(tokens []uint32) LookupResult {
	return c.engine.Lookup(tokens)
}

// Store writes one block for the prefix ending at blockIndex. It returns
// false when the token slice is too short for the index, or when the object
// store rejected the write; in either case the index is untouched.
func (c *KVCache) Store(ctx context.Context, tokens []uint32, blockIndex uint32, data []byte) bool {
	return c.engine.Store(ctx, tokens, blockIndex, data)
}

// Load fetches the full payload of one block previously resolved by Lookup.
func (c *KVCache) Load(ctx context.Context, ref BlockRef) ([]byte, bool) {
	return c.engine.Load(ctx, ref)
}

// UsedBytes returns the current sum of resident block sizes.
func (c *KVCache) UsedBytes() uint64 {
	return c.engine.UsedBytes()
}

// CapacityBytes returns the current soft capacity.
func (c *KVCache) CapacityBytes() uint64 {
	return c.engine.CapacityBytes()
}

// SetCapacityBytes adjusts the soft capacity. Shrinking below current usage
// triggers eviction.
func (c *KVCache) SetCapacityBytes(capacity uint64) {
	c.engine.SetCapacityBytes(capacity)
}

// Close stops the background eviction worker and waits for it to exit.
func (c *KVCache) Close() error {
	return c.engine.Close()
}
