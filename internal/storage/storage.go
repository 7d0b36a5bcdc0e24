// Package storage defines the key-value contract shared by the persistence
// backends (JSON files, SQLite, Postgres, memory).
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key has no value
	ErrNotFound = errors.New("not found")
)

// KV is a minimal key-value store. Values are opaque bytes; callers own the
// encoding.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key, or returns ErrNotFound if it was absent
	Delete(ctx context.Context, key string) error
}
