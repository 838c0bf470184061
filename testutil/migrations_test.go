package testutil_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/globaltrip/backend/migrations"
	"github.com/pkordes/globaltrip/backend/testutil"
)

// TestMigrations_RoundTrip resets the shared database, migrates it up, checks
// the trips schema, and migrates back down to nothing.
func TestMigrations_RoundTrip(t *testing.T) {
	db := testutil.NewSQLDB(t)
	ctx := context.Background()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	require.NoError(t, err)

	// The repo tests may have migrated this database already.
	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err, "reset")

	applied, err := provider.Up(ctx)
	require.NoError(t, err, "up")
	require.NotEmpty(t, applied)

	version, err := provider.GetDBVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, applied[len(applied)-1].Source.Version, version)

	assert.Equal(t, map[string]string{
		"id":               "text",
		"title":            "text",
		"description":      "text",
		"destination":      "text",
		"start_date":       "date",
		"end_date":         "date",
		"cover_image_url":  "text",
		"is_archived":      "boolean",
		"owner_id":         "text",
		"collaborator_ids": "ARRAY",
		"created_at":       "timestamp with time zone",
		"updated_at":       "timestamp with time zone",
	}, tripColumns(t, db))
	assert.True(t, hasIndex(t, db, "trips_created_at_idx"))
	assert.True(t, hasIndex(t, db, "trips_owner_id_idx"))

	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err, "down")
	assert.Empty(t, tripColumns(t, db), "trips table should be dropped")
}

// tripColumns maps each column of public.trips to its data type.
func tripColumns(t *testing.T, db *sql.DB) map[string]string {
	t.Helper()

	rows, err := db.QueryContext(context.Background(), `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = 'trips'`)
	require.NoError(t, err)
	defer rows.Close()

	cols := map[string]string{}
	for rows.Next() {
		var name, typ string
		require.NoError(t, rows.Scan(&name, &typ))
		cols[name] = typ
	}
	require.NoError(t, rows.Err())
	return cols
}

func hasIndex(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var ok bool
	err := db.QueryRowContext(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = $1)`, name).Scan(&ok)
	require.NoError(t, err)
	return ok
}
