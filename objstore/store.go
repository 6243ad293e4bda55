package objstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when an object does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// ObjectStore is the flat key/value surface the cache engine writes blocks
// through. Keys are arbitrary printable strings; payloads are opaque bytes.
//
// All calls block until the store has answered. Implementations must be safe
// for concurrent use.
type ObjectStore interface {
	// Get returns the full payload stored under key.
	// Missing keys yield an error satisfying errors.Is(err, ErrNotFound).
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or overwrites the object under key. Concurrent writers to
	// the same key race at the store and the last writer wins.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes the object under key. Deleting an absent key succeeds.
	Delete(ctx context.Context, key string) error
}
