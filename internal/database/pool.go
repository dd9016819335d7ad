package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/JonMunkholm/admissions/internal/config"
	"github.com/JonMunkholm/admissions/internal/core"
	"github.com/JonMunkholm/admissions/internal/logging"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool from cfg and verifies it with a ping. Connection
// failures wrap core.ErrStoreUnavailable.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}

	logging.FromContext(ctx).Info("connected to database", "name", databaseName(cfg.URL))
	return pool, nil
}

// databaseName extracts the database name for logs without exposing credentials.
func databaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
