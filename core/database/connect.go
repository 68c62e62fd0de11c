package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/shopbot/core/logger"
)

// Connect opens the database connection, waiting up to wait for Postgres to accept
// connections, then configures the pool.
func Connect(ctx context.Context, cfg Config, wait time.Duration) (*sqlx.DB, error) {
	start := time.Now()
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := waitForPing(ctx, db, wait); err != nil {
		_ = db.Close()
		logger.DB.LogAttrs(ctx, slog.LevelError, "db connect failed",
			slog.String("event", "db.connect"),
			slog.String("status", "fail"),
			slog.String("host", cfg.Host),
			slog.String("port", cfg.Port),
			slog.String("db", cfg.Name),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", logger.Err(err)),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	db.SetConnMaxIdleTime(5 * time.Minute)

	logger.DB.LogAttrs(ctx, slog.LevelInfo, "db connected",
		slog.String("event", "db.connect"),
		slog.String("status", "ok"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.Took(start)),
	)
	return db, nil
}

// waitForPing pings until the database answers, ctx is done or wait elapses.
func waitForPing(ctx context.Context, db *sqlx.DB, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("database not ready after %s: %w", wait, err)
		}
		logger.DB.LogAttrs(ctx, slog.LevelDebug, "db not ready",
			slog.String("event", "db.ping"),
			slog.String("status", "retry"),
			slog.String("err", logger.Err(err)),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}
