package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"campus-market/internal/config"
	"campus-market/internal/logger"
)

//go:embed schema.sql
var schema string

// Init opens the Postgres pool and waits for the server to answer, retrying
// while it starts up.
func Init(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url not set")
	}

	sqlDB, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := waitForPing(ctx, sqlDB, cfg.ConnectRetries, cfg.RetryInterval); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// pinger is the part of *sql.DB waitForPing needs.
type pinger interface {
	PingContext(ctx context.Context) error
}

func waitForPing(ctx context.Context, p pinger, retries int, interval time.Duration) error {
	if retries < 1 {
		retries = 1
	}
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		if err = p.PingContext(ctx); err == nil {
			return nil
		}
		logger.Infof("database not ready (attempt %d/%d): %v", attempt, retries, err)
		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("database unreachable after %d attempts: %w", retries, err)
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, sqlDB *sql.DB) error {
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
