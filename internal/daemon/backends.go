package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/felixgeelhaar/stockwise/internal/config"
	"github.com/felixgeelhaar/stockwise/internal/events"
	"github.com/felixgeelhaar/stockwise/internal/storage"
	"github.com/felixgeelhaar/stockwise/internal/storage/local"
	"github.com/felixgeelhaar/stockwise/internal/storage/memory"
	"github.com/felixgeelhaar/stockwise/internal/storage/postgres"
	"github.com/felixgeelhaar/stockwise/internal/storage/sqlite"
)

// ErrPostgresURL is returned when the postgres backend has no connection string
var ErrPostgresURL = errors.New("postgres backend requires a connection url")

// Storage is an opened key-value backend
type Storage struct {
	storage.KV
	Backend string
	close   func() error
}

// Close releases the backend's connections
func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStorage opens the backend named in cfg. File based backends live
// under dataDir.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, dataDir string) (*Storage, error) {
	switch cfg.Backend {
	case config.BackendJSON, "":
		store, err := local.NewStore(filepath.Join(dataDir, "state"))
		if err != nil {
			return nil, fmt.Errorf("open json store: %w", err)
		}
		return &Storage{KV: store, Backend: config.BackendJSON, close: store.Close}, nil

	case config.BackendSQLite:
		db, err := sqlite.Open(filepath.Join(dataDir, "stockwise.db"))
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return &Storage{KV: sqlite.NewKVStore(db), Backend: config.BackendSQLite, close: db.Close}, nil

	case config.BackendPostgres:
		if cfg.PostgresURL == "" {
			return nil, ErrPostgresURL
		}
		store, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		return &Storage{KV: store, Backend: config.BackendPostgres, close: store.Close}, nil

	case config.BackendMemory:
		store := memory.NewStore()
		return &Storage{KV: store, Backend: config.BackendMemory, close: store.Close}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// OpenPublisher returns the event publisher named in cfg and the backend
// actually in use. A broker that cannot be reached degrades to the log
// publisher.
func OpenPublisher(cfg config.EventsConfig, logger *slog.Logger) (events.Publisher, string) {
	if cfg.Backend != config.EventsAMQP {
		return events.NewLogPublisher(logger), config.EventsLog
	}

	conn, err := events.Dial(cfg.AMQPURL, cfg.Exchange, logger)
	if err != nil {
		logger.Warn("event broker not available, logging events instead", "error", err)
		return events.NewLogPublisher(logger), config.EventsLog
	}
	logger.Info("publishing events to broker", "exchange", conn.Exchange())
	return events.NewAMQPPublisher(conn), config.EventsAMQP
}
