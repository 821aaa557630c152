// Package store defines the durable key-value contract shared by the session
// store and the rate limiter, plus a bbolt-backed and an in-memory
// implementation. The contract is deliberately loose: a backing store may be
// eventually consistent, so read-then-write sequences are not atomic. Callers
// own that tradeoff.
package store

import (
	"context"

	sharederrors "github.com/quangmanh-dev/webscan/internal/shared/errors"
)

// Store is any string-keyed blob store with get/put semantics.
type Store interface {
	// Get returns the value for key, or sharederrors.ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes value under key, overwriting any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases underlying resources.
	Close() error
}

// ErrKeyNotFound is re-declared here for call sites that only import store.
var ErrKeyNotFound = sharederrors.ErrKeyNotFound
