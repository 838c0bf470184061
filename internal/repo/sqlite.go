package repo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/pkordes/globaltrip/backend/internal/clock"
	"github.com/pkordes/globaltrip/backend/internal/domain"
)

// sqliteSchema is applied on every new connection. It is idempotent.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trips (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	destination      TEXT NOT NULL DEFAULT '',
	start_date       TEXT,
	end_date         TEXT,
	cover_image_url  TEXT NOT NULL DEFAULT '',
	is_archived      INTEGER NOT NULL DEFAULT 0,
	owner_id         TEXT NOT NULL DEFAULT '',
	collaborator_ids TEXT NOT NULL DEFAULT '',
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS trips_created_at_idx ON trips (created_at);
`

const sqliteTripColumns = `id, title, description, destination, start_date, end_date,
	cover_image_url, is_archived, owner_id, collaborator_ids, created_at, updated_at`

// SQLiteConfig holds the parameters for opening the local trip store.
type SQLiteConfig struct {
	// Path is the database file. It is created if missing; the parent
	// directory must exist.
	Path string

	// PoolSize defaults to 4.
	PoolSize int

	// Clock stamps created_at/updated_at. Defaults to the wall clock.
	Clock clock.Clock

	Logger *slog.Logger
}

// SQLiteTripRepo is the on-device TripRepo. Timestamps are stored as Unix
// nanoseconds, dates as YYYY-MM-DD and collaborators comma-joined.
type SQLiteTripRepo struct {
	pool   *sqlitex.Pool
	clock  clock.Clock
	logger *slog.Logger
	hub    *hub
	path   string
}

var _ TripRepo = (*SQLiteTripRepo)(nil)

// OpenSQLite opens (and if needed creates) the local trip database.
// The caller must Close it.
func OpenSQLite(cfg SQLiteConfig) (*SQLiteTripRepo, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("repo.OpenSQLite: Path is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    cfg.PoolSize,
		PrepareConn: prepareSQLiteConn,
	})
	if err != nil {
		return nil, fmt.Errorf("repo.OpenSQLite: opening %s: %w", cfg.Path, err)
	}

	cfg.Logger.Info("sqlite trip store opened", "path", cfg.Path, "pool_size", cfg.PoolSize)

	r := &SQLiteTripRepo{pool: pool, clock: cfg.Clock, logger: cfg.Logger, path: cfg.Path}
	r.hub = newHub(r.List, cfg.Logger)
	return r, nil
}

func prepareSQLiteConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, sqliteSchema, nil); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close blocks until all borrowed connections are returned.
func (r *SQLiteTripRepo) Close() error {
	if err := r.pool.Close(); err != nil {
		return fmt.Errorf("repo.SQLiteTripRepo.Close: %s: %w", r.path, err)
	}
	r.logger.Info("sqlite trip store closed", "path", r.path)
	return nil
}

func (r *SQLiteTripRepo) Watch(ctx context.Context) <-chan Snapshot {
	return r.hub.watch(ctx)
}

// Reload re-reads the trip list for every watcher.
func (r *SQLiteTripRepo) Reload(ctx context.Context) error {
	if err := r.hub.reload(ctx); err != nil {
		return fmt.Errorf("repo.SQLiteTripRepo.Reload: %w", err)
	}
	return nil
}

func (r *SQLiteTripRepo) List(ctx context.Context) ([]domain.Trip, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.SQLiteTripRepo.List: %w", err)
	}
	defer r.pool.Put(conn)

	trips := []domain.Trip{}
	err = sqlitex.Execute(conn,
		`SELECT `+sqliteTripColumns+` FROM trips ORDER BY created_at DESC, id`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				t, err := scanSQLiteTrip(stmt)
				if err != nil {
					return err
				}
				trips = append(trips, t)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("repo.SQLiteTripRepo.List: %w", err)
	}
	return trips, nil
}

func (r *SQLiteTripRepo) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.SQLiteTripRepo.GetByID: %w", err)
	}
	defer r.pool.Put(conn)

	t, found, err := getSQLiteTrip(conn, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.SQLiteTripRepo.GetByID: %w", err)
	}
	if !found {
		return domain.Trip{}, fmt.Errorf("repo.SQLiteTripRepo.GetByID: %w", domain.ErrNotFound)
	}
	return t, nil
}

func (r *SQLiteTripRepo) Create(ctx context.Context, trip domain.Trip) (string, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("repo.SQLiteTripRepo.Create: %w", err)
	}
	defer r.pool.Put(conn)

	id := trip.ID
	if id == "" {
		id, err = generateID(ctx, func(_ context.Context, candidate string) (bool, error) {
			_, found, err := getSQLiteTrip(conn, candidate)
			return found, err
		})
		if err != nil {
			return "", fmt.Errorf("repo.SQLiteTripRepo.Create: %w", err)
		}
	}

	now := r.clock.Now().UnixNano()
	const q = `
		INSERT INTO trips (id, title, description, destination, start_date, end_date,
		                   cover_image_url, is_archived, owner_id, collaborator_ids,
		                   created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`

	err = sqlitex.Execute(conn, q, &sqlitex.ExecOptions{
		Args: []any{
			id, trip.Title, trip.Description, trip.Destination,
			formatDate(trip.StartDate), formatDate(trip.EndDate),
			trip.CoverImageURL, trip.IsArchived, trip.OwnerID,
			joinIDs(trip.CollaboratorIDs), now, now,
		},
	})
	if err != nil {
		return "", fmt.Errorf("repo.SQLiteTripRepo.Create: %w", err)
	}
	if conn.Changes() == 0 {
		return "", fmt.Errorf("repo.SQLiteTripRepo.Create: %q: %w", id, domain.ErrDuplicateID)
	}

	r.hub.changed(ctx)
	return id, nil
}

func (r *SQLiteTripRepo) Update(ctx context.Context, trip domain.Trip) error {
	const q = `
		UPDATE trips
		SET title = ?, description = ?, destination = ?, start_date = ?, end_date = ?,
		    cover_image_url = ?, is_archived = ?, owner_id = ?, collaborator_ids = ?,
		    updated_at = ?
		WHERE id = ?`

	changed, err := r.exec(ctx, q,
		trip.Title, trip.Description, trip.Destination,
		formatDate(trip.StartDate), formatDate(trip.EndDate),
		trip.CoverImageURL, trip.IsArchived, trip.OwnerID,
		joinIDs(trip.CollaboratorIDs), r.clock.Now().UnixNano(), trip.ID)
	if err != nil {
		return fmt.Errorf("repo.SQLiteTripRepo.Update: %w", err)
	}
	if changed == 0 {
		return fmt.Errorf("repo.SQLiteTripRepo.Update: %w", domain.ErrNotFound)
	}

	r.hub.changed(ctx)
	return nil
}

func (r *SQLiteTripRepo) Delete(ctx context.Context, id string) error {
	changed, err := r.exec(ctx, `DELETE FROM trips WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("repo.SQLiteTripRepo.Delete: %w", err)
	}
	if changed > 0 {
		r.hub.changed(ctx)
	}
	return nil
}

func (r *SQLiteTripRepo) Archive(ctx context.Context, id string) error {
	return r.setArchived(ctx, id, true)
}

func (r *SQLiteTripRepo) Unarchive(ctx context.Context, id string) error {
	return r.setArchived(ctx, id, false)
}

func (r *SQLiteTripRepo) setArchived(ctx context.Context, id string, archived bool) error {
	changed, err := r.exec(ctx,
		`UPDATE trips SET is_archived = ?, updated_at = ? WHERE id = ?`,
		archived, r.clock.Now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("repo.SQLiteTripRepo.setArchived: %w", err)
	}
	if changed == 0 {
		r.logger.Warn("archive flag change for unknown trip", "trip_id", id, "archived", archived)
		return nil
	}

	r.hub.changed(ctx)
	return nil
}

// exec runs a single statement and reports how many rows it changed.
func (r *SQLiteTripRepo) exec(ctx context.Context, query string, args ...any) (int, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer r.pool.Put(conn)

	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return 0, err
	}
	return conn.Changes(), nil
}

func getSQLiteTrip(conn *sqlite.Conn, id string) (domain.Trip, bool, error) {
	var (
		t     domain.Trip
		found bool
	)
	err := sqlitex.Execute(conn,
		`SELECT `+sqliteTripColumns+` FROM trips WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				var err error
				t, err = scanSQLiteTrip(stmt)
				found = err == nil
				return err
			},
		})
	return t, found, err
}

func scanSQLiteTrip(stmt *sqlite.Stmt) (domain.Trip, error) {
	t := domain.Trip{
		ID:              stmt.ColumnText(0),
		Title:           stmt.ColumnText(1),
		Description:     stmt.ColumnText(2),
		Destination:     stmt.ColumnText(3),
		CoverImageURL:   stmt.ColumnText(6),
		IsArchived:      stmt.ColumnInt(7) != 0,
		OwnerID:         stmt.ColumnText(8),
		CollaboratorIDs: splitIDs(stmt.ColumnText(9)),
		CreatedAt:       time.Unix(0, stmt.ColumnInt64(10)).UTC(),
		UpdatedAt:       time.Unix(0, stmt.ColumnInt64(11)).UTC(),
	}

	var err error
	if !stmt.ColumnIsNull(4) {
		if t.StartDate, err = parseDate(stmt.ColumnText(4)); err != nil {
			return domain.Trip{}, fmt.Errorf("trip %s: %w", t.ID, err)
		}
	}
	if !stmt.ColumnIsNull(5) {
		if t.EndDate, err = parseDate(stmt.ColumnText(5)); err != nil {
			return domain.Trip{}, fmt.Errorf("trip %s: %w", t.ID, err)
		}
	}
	return t, nil
}
