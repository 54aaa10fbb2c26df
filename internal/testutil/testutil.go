// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tix-booking/migrations"
)

// NewTestPool connects to TEST_DATABASE_URL, applies the migrations and empties every
// table. The test is skipped when the variable is unset or the server is unreachable.
func NewTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	if err := pool.Ping(ctx); err != nil {
		t.Skipf("postgres unreachable: %v", err)
	}

	require.NoError(t, migrations.Apply(ctx, pool))
	Truncate(t, pool)

	return pool
}

func Truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`TRUNCATE payment_proofs, bookings, ticket_tiers, events RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}
