package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pkordes/globaltrip/backend/internal/repo"
	"github.com/pkordes/globaltrip/backend/testutil"
)

// newPostgresRepo returns a TripRepo running inside a transaction that is
// rolled back when the test finishes.
func newPostgresRepo(t *testing.T) repo.TripRepo {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})

	return repo.NewPostgresTripRepo(tx, nil)
}

func TestPostgresTripRepo(t *testing.T) {
	exerciseTripRepo(t, newPostgresRepo, func() { time.Sleep(2 * time.Millisecond) })
}
