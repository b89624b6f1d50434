package storage

import (
	"context"
	"fmt"

	"github.com/socialchef/recipebox/internal/config"
	"github.com/socialchef/recipebox/internal/db"
)

// Open builds the Store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "s3":
		store, err := NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	case "sqlite", "":
		store, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
