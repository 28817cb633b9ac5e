//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"tuition/internal/platform/database"
)

const postgresImage = "postgres:18-alpine"

// PostgresContainer is a running Postgres holding one store's schema.
type PostgresContainer struct {
	Container testcontainers.Container
	Pool      *database.Pool
	DB        *sql.DB
}

// NewPostgresContainer starts Postgres and migrates it with the goose
// files in dir. The container is terminated through t.Fatalf paths only;
// on success Ryuk reaps it.
func NewPostgresContainer(t *testing.T, dir string) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("portal"),
		postgres.WithUsername("portal"),
		postgres.WithPassword("portal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start %s: %v", postgresImage, err)
	}
	fail := func(format string, args ...any) {
		_ = ctr.Terminate(ctx)
		t.Fatalf(format, args...)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fail("postgres dsn: %v", err)
	}

	cfg := database.DefaultConfig()
	cfg.URL = dsn
	pool, err := database.OpenPostgres(ctx, cfg)
	if err != nil {
		fail("open postgres: %v", err)
	}
	if err := pool.Migrate(ctx, dir); err != nil {
		_ = pool.Close()
		fail("migrate %s: %v", dir, err)
	}

	return &PostgresContainer{Container: ctr, Pool: pool, DB: pool.DB()}
}

// Reset empties tables and restarts their id sequences, so each test sees
// ids from 1 again.
func (p *PostgresContainer) Reset(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	stmt := "TRUNCATE TABLE " + strings.Join(tables, ", ") + " RESTART IDENTITY"
	if _, err := p.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("reset %v: %w", tables, err)
	}
	return nil
}
