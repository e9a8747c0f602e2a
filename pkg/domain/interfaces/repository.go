package interfaces

import (
	"context"
)

// KVStore is a byte level key-value store used to persist viewer state.
// Implementations must be safe for concurrent use.
type KVStore interface {
	// Get returns the value stored under key, or nil, nil when the key is absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key (upsert)
	Put(ctx context.Context, key string, value []byte) error

	// PutMany stores all entries. Backends that support it apply the batch atomically.
	PutMany(ctx context.Context, entries map[string][]byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}
