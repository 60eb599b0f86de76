package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/wuwenbin0122/studybot/internal/db"
	"github.com/wuwenbin0122/studybot/internal/utils"
)

// Open connects the backend selected by cfg.StoreBackend and prepares its
// schema. The returned store owns the connection.
func Open(ctx context.Context, cfg *utils.Config, opts ...Option) (Store, error) {
	switch cfg.StoreBackend {
	case utils.StoreMongo:
		conn, err := db.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		if err := conn.EnsureCollections(ctx); err != nil {
			_ = conn.Close(context.Background())
			return nil, fmt.Errorf("mongo: ensure collections: %w", err)
		}
		return NewMongo(conn, opts...), nil

	case utils.StorePostgres:
		conn, err := db.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := conn.EnsureSchema(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("postgres: ensure schema: %w", err)
		}
		return NewPostgres(conn, opts...), nil

	case utils.StoreRedis:
		client, err := db.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return NewRedis(client, cfg.Redis.KeyPrefix, opts...), nil

	case utils.StoreSQLite:
		gormDB, err := db.NewSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		st, err := NewSQLite(gormDB, opts...)
		if err != nil {
			closeGorm(gormDB)
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return st, nil

	case utils.StoreMemory:
		return NewMemory(opts...), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func closeGorm(gormDB *gorm.DB) {
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
