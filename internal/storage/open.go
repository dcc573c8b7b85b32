package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/travel-session/internal/config"
	"github.com/spec-kit/travel-session/internal/persistence"
)

// Backend is an opened durable store plus the connection that backs it.
type Backend struct {
	Store *SessionStore
	// Ping checks the backing connection; nil for the memory backend.
	Ping  func(ctx context.Context) error
	close func()
}

// Close releases the backing connection.
func (b *Backend) Close() {
	if b != nil && b.close != nil {
		b.close()
	}
}

// Open connects the backend selected by SESSION_STORAGE.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	namespace := cfg.Session.Namespace
	logger = logger.With(zap.String("storage", cfg.Session.Storage), zap.String("namespace", namespace))

	switch cfg.Session.Storage {
	case config.StorageMemory:
		logger.Info("using in-memory session storage")
		return &Backend{Store: NewSessionStore(NewMemoryKV())}, nil

	case config.StorageRedis:
		rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store: NewSessionStore(NewRedisKV(rdb.Client, namespace)),
			Ping:  rdb.Ping,
			close: rdb.Close,
		}, nil

	case config.StoragePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.Migrate(ctx, cfg.Postgres, logger); err != nil {
			pg.Close()
			return nil, err
		}
		return &Backend{
			Store: NewSessionStore(NewPostgresKV(pg.Pool(), namespace)),
			Ping:  pg.Ping,
			close: pg.Close,
		}, nil

	case config.StorageSQLite:
		lite, err := persistence.NewSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store: NewSessionStore(NewSQLiteKV(lite.DB, namespace)),
			Ping:  lite.Ping,
			close: lite.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown session storage %q", cfg.Session.Storage)
	}
}
