package objstore

import (
	"context"

	"golang.org/x/time/rate"
)

// rateLimitedStore throttles all operations of an inner store through a
// shared token bucket.
type rateLimitedStore struct {
	inner   ObjectStore
	limiter *rate.Limiter
}

// RateLimited wraps store so that every Get, Put and Delete first waits on
// the given limiter. All operations share one bucket: the cache cares about
// total request pressure on the endpoint, not the op mix.
//
// A nil limiter returns store unchanged.
func RateLimited(store ObjectStore, limiter *rate.Limiter) ObjectStore {
	if limiter == nil {
		return store
	}
	return &rateLimitedStore{inner: store, limiter: limiter}
}

func (s *rateLimitedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.Get(ctx, key)
}

func (s *rateLimitedStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.Put(ctx, key, data)
}

func (s *rateLimitedStore) Delete(ctx context.Context, key string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.Delete(ctx, key)
}
