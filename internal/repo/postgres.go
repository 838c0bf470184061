package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/globaltrip/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db     db
	logger *slog.Logger
	hub    *hub
}

// NewPostgresTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPostgresTripRepo(db db, logger *slog.Logger) TripRepo {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &pgTripRepo{db: db, logger: logger}
	r.hub = newHub(r.List, logger)
	return r
}

const pgTripColumns = `id, title, description, destination, start_date, end_date,
	cover_image_url, is_archived, owner_id, collaborator_ids, created_at, updated_at`

// Watch streams the trip list, re-read after every mutation made through r.
func (r *pgTripRepo) Watch(ctx context.Context) <-chan Snapshot {
	return r.hub.watch(ctx)
}

// Reload re-reads the trip list for every watcher.
func (r *pgTripRepo) Reload(ctx context.Context) error {
	if err := r.hub.reload(ctx); err != nil {
		return fmt.Errorf("repo.TripRepo.Reload: %w", err)
	}
	return nil
}

// List returns all trips, most recently created first.
func (r *pgTripRepo) List(ctx context.Context) ([]domain.Trip, error) {
	q := `SELECT ` + pgTripColumns + ` FROM trips ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.List: %w", err)
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanPgTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TripRepo.List: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripRepo.List: rows: %w", err)
	}
	return trips, nil
}

// GetByID retrieves a trip by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	q := `SELECT ` + pgTripColumns + ` FROM trips WHERE id = @id`

	t, err := scanPgTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return t, nil
}

// Create inserts a new trip row. ON CONFLICT keeps a duplicate id from
// aborting the surrounding transaction.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (string, error) {
	id := trip.ID
	if id == "" {
		var err error
		if id, err = generateID(ctx, r.exists); err != nil {
			return "", fmt.Errorf("repo.TripRepo.Create: %w", err)
		}
	}

	const q = `
		INSERT INTO trips (id, title, description, destination, start_date, end_date,
		                   cover_image_url, is_archived, owner_id, collaborator_ids,
		                   created_at, updated_at)
		VALUES (@id, @title, @description, @destination, @start_date, @end_date,
		        @cover_image_url, @is_archived, @owner_id, @collaborator_ids,
		        statement_timestamp(), statement_timestamp())
		ON CONFLICT (id) DO NOTHING`

	args := pgTripArgs(trip)
	args["id"] = id

	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return "", fmt.Errorf("repo.TripRepo.Create: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", fmt.Errorf("repo.TripRepo.Create: %q: %w", id, domain.ErrDuplicateID)
	}

	r.hub.changed(ctx)
	return id, nil
}

// Update overwrites every mutable field of a trip.
func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) error {
	const q = `
		UPDATE trips
		SET title            = @title,
		    description      = @description,
		    destination      = @destination,
		    start_date       = @start_date,
		    end_date         = @end_date,
		    cover_image_url  = @cover_image_url,
		    is_archived      = @is_archived,
		    owner_id         = @owner_id,
		    collaborator_ids = @collaborator_ids,
		    updated_at       = statement_timestamp()
		WHERE id = @id`

	args := pgTripArgs(trip)
	args["id"] = trip.ID

	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Update: %w", domain.ErrNotFound)
	}

	r.hub.changed(ctx)
	return nil
}

// Delete removes a trip by primary key.
func (r *pgTripRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM trips WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() > 0 {
		r.hub.changed(ctx)
	}
	return nil
}

func (r *pgTripRepo) Archive(ctx context.Context, id string) error {
	return r.setArchived(ctx, id, true)
}

func (r *pgTripRepo) Unarchive(ctx context.Context, id string) error {
	return r.setArchived(ctx, id, false)
}

func (r *pgTripRepo) setArchived(ctx context.Context, id string, archived bool) error {
	const q = `
		UPDATE trips
		SET is_archived = @archived,
		    updated_at  = statement_timestamp()
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "archived": archived})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.setArchived: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("archive flag change for unknown trip", "trip_id", id, "archived", archived)
		return nil
	}

	r.hub.changed(ctx)
	return nil
}

func (r *pgTripRepo) exists(ctx context.Context, id string) (bool, error) {
	var found bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = @id)`,
		pgx.NamedArgs{"id": id}).Scan(&found)
	return found, err
}

func pgTripArgs(trip domain.Trip) pgx.NamedArgs {
	return pgx.NamedArgs{
		"title":            trip.Title,
		"description":      trip.Description,
		"destination":      trip.Destination,
		"start_date":       pgDate(trip.StartDate),
		"end_date":         pgDate(trip.EndDate), // invalid becomes NULL
		"cover_image_url":  trip.CoverImageURL,
		"is_archived":      trip.IsArchived,
		"owner_id":         trip.OwnerID,
		"collaborator_ids": collaborators(trip.CollaboratorIDs),
	}
}

func pgDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: domain.DateOf(*t), Valid: true}
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanPgTrip maps a single database row into a domain.Trip.
func scanPgTrip(s scanner) (domain.Trip, error) {
	var (
		t          domain.Trip
		start, end pgtype.Date
	)

	err := s.Scan(&t.ID, &t.Title, &t.Description, &t.Destination, &start, &end,
		&t.CoverImageURL, &t.IsArchived, &t.OwnerID, &t.CollaboratorIDs,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	if start.Valid {
		sd := start.Time
		t.StartDate = &sd
	}
	if end.Valid {
		ed := end.Time
		t.EndDate = &ed
	}
	t.CollaboratorIDs = collaborators(t.CollaboratorIDs)
	return t, nil
}
