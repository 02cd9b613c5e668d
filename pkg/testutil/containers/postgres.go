//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"tally/internal/platform/config"
	"tally/internal/platform/postgres"
)

// PostgresContainer is a Postgres 16 instance opened through the server's
// own connect path.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("tally"),
		tcpostgres.WithUsername("tally"),
		tcpostgres.WithPassword("tally"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("postgres connection string: %v", err)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := postgres.Connect(ctx, config.DatabaseConfig{
		URL:            dsn,
		MaxOpenConns:   10,
		ConnectTimeout: 30 * time.Second,
	}, quiet)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("connect postgres: %v", err)
	}
	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// Migrate applies schema scripts in order.
func (p *PostgresContainer) Migrate(ctx context.Context, schemas ...string) error {
	for _, schema := range schemas {
		if err := postgres.Migrate(ctx, p.DB, schema); err != nil {
			return err
		}
	}
	return nil
}

// TruncateTables empties the given tables. Names come from test code only.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", ")))
	return err
}
