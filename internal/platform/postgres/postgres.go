// Package postgres opens the ledger database through the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tally/internal/platform/config"
)

const maxBackoff = 30 * time.Second

// Connect opens the pool and pings until the database answers or
// cfg.ConnectTimeout elapses. Backoff doubles from one second, capped at 30s.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := time.Second
	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			if attempt > 1 {
				logger.InfoContext(ctx, "database connected", "attempts", attempt)
			}
			return db, nil
		}
		logger.WarnContext(ctx, "database not ready, retrying",
			"attempt", attempt,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("connect database after %d attempts: %w", attempt, err)
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// Migrate applies an idempotent schema script.
func Migrate(ctx context.Context, db *sql.DB, schema string) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
