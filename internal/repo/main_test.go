package repo_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/pkordes/globaltrip/backend/migrations"
	"github.com/pkordes/globaltrip/backend/testutil"
)

// TestMain brings the Postgres schema up to date once per test binary when
// TEST_DATABASE_URL is set. SQLite and remote tests never need it.
func TestMain(m *testing.M) {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		if err := migrate(dsn); err != nil {
			fmt.Fprintln(os.Stderr, "repo tests:", err)
			os.Exit(1)
		}
	}
	os.Exit(m.Run())
}

func migrate(dsn string) error {
	db := testutil.MustOpenSQLDB(dsn)
	defer db.Close()
	return migrations.Up(context.Background(), db, slog.New(slog.DiscardHandler))
}
