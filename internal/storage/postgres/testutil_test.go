package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"pumpcore/internal/storage/migrations"
	pgstore "pumpcore/internal/storage/postgres"
)

// setupTestDB starts a disposable Postgres, applies the embedded schema and
// registers teardown on t.
func setupTestDB(t *testing.T) (*pgstore.Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("pumpcore"),
		tcpostgres.WithUsername("pumpcore"),
		tcpostgres.WithPassword("pumpcore"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgstore.NewPool(ctx, dsn, pgstore.WithMaxConns(4), pgstore.WithMaxConnIdleTime(time.Minute))
	require.NoError(t, err)

	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool, zaptest.NewLogger(t)))

	return pool, func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	}
}
