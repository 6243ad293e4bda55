// Package objstore provides the storage abstraction behind the KV block cache.
//
// ObjectStore is the interface the engine consumes: blocking Get, Put and
// Delete over a flat key space. Implementations must be safe for concurrent
// use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory map, for tests and benchmarks
//   - LocalStore: local filesystem with atomic writes
//   - miniostore.Store: MinIO and S3-compatible endpoints
//   - s3store.Store: Amazon S3 via the AWS SDK v2
//
// # Rate limiting
//
// RateLimited wraps any ObjectStore with a shared token bucket so a fleet of
// workers does not overwhelm a single endpoint:
//
//	store := objstore.RateLimited(inner, rate.NewLimiter(rate.Limit(500), 100))
package objstore
