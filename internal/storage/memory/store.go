package memory

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/stockwise/internal/storage"
)

// Store is an in-process KV backend. Nothing survives a restart.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewStore creates an empty memory store
func NewStore() *Store {
	return &Store{values: make(map[string][]byte)}
}

var _ storage.KV = (*Store)(nil)

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.values[key] = v
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.values, key)
	return nil
}

// Close is a no-op so the memory store can stand in for closable backends
func (s *Store) Close() error {
	return nil
}
