package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/stockwise/internal/storage"
)

// Key is the fixed key the record is stored under
const Key = "user"

// Store saves, loads and clears the session record on a KV backend
type Store struct {
	kv     storage.KV
	logger *slog.Logger
}

// NewStore creates a session store on kv
func NewStore(kv storage.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// Save serializes rec and writes it under Key
func (s *Store) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.kv.Put(ctx, Key, data); err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// Load returns the stored record. ok is false when nothing is stored or the
// stored value does not decode; neither case is an error.
func (s *Store) Load(ctx context.Context) (rec Record, ok bool) {
	data, err := s.kv.Get(ctx, Key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("session read failed", "error", err)
		}
		return Record{}, false
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("discarding undecodable session record", "error", err)
		return Record{}, false
	}
	return rec, true
}

// Clear removes the record. Clearing an empty store succeeds.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}
