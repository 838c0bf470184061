package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pkordes/globaltrip/backend/internal/clock"
	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/supabase"
)

// DefaultTripsTable is the hosted table name.
const DefaultTripsTable = "trips"

// Table is the PostgREST surface the remote store needs. *supabase.Client
// satisfies it.
type Table interface {
	Select(ctx context.Context, table string, query url.Values, token string, out any) error
	Insert(ctx context.Context, table string, rows any, token string, out any) error
	Update(ctx context.Context, table string, filter url.Values, patch any, token string, out any) error
	Delete(ctx context.Context, table string, filter url.Values, token string) error
}

// ChangeFeed delivers row changes for a table. *supabase.Realtime satisfies it.
type ChangeFeed interface {
	Listen(ctx context.Context, table, token string, onChange func(supabase.Change)) error
}

// TokenSource returns the access token to send with each request.
// An empty token means the request goes out with the anonymous key.
type TokenSource func(ctx context.Context) (string, error)

// RemoteConfig configures a RemoteTripRepo.
type RemoteConfig struct {
	Table  Table
	Tokens TokenSource
	// Name of the hosted table; defaults to DefaultTripsTable.
	Name   string
	Clock  clock.Clock
	Logger *slog.Logger
}

// RemoteTripRepo stores trips in the hosted database through its REST API.
// Writes are last-write-wins; there is no version check.
type RemoteTripRepo struct {
	table  Table
	tokens TokenSource
	name   string
	clock  clock.Clock
	logger *slog.Logger
	hub    *hub
}

var _ TripRepo = (*RemoteTripRepo)(nil)

func NewRemoteTripRepo(cfg RemoteConfig) *RemoteTripRepo {
	if cfg.Name == "" {
		cfg.Name = DefaultTripsTable
	}
	if cfg.Tokens == nil {
		cfg.Tokens = func(context.Context) (string, error) { return "", nil }
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	r := &RemoteTripRepo{
		table:  cfg.Table,
		tokens: cfg.Tokens,
		name:   cfg.Name,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
	r.hub = newHub(r.List, cfg.Logger)
	return r
}

// tripRow is the JSON shape of a row in the hosted trips table.
type tripRow struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Destination     string    `json:"destination"`
	StartDate       *string   `json:"start_date"`
	EndDate         *string   `json:"end_date"`
	CoverImageURL   string    `json:"cover_image_url"`
	IsArchived      bool      `json:"is_archived"`
	OwnerID         string    `json:"owner_id"`
	CollaboratorIDs []string  `json:"collaborator_ids"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toRow(t domain.Trip) tripRow {
	return tripRow{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Destination:     t.Destination,
		StartDate:       dateString(t.StartDate),
		EndDate:         dateString(t.EndDate),
		CoverImageURL:   t.CoverImageURL,
		IsArchived:      t.IsArchived,
		OwnerID:         t.OwnerID,
		CollaboratorIDs: collaborators(t.CollaboratorIDs),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func (row tripRow) toTrip() (domain.Trip, error) {
	t := domain.Trip{
		ID:              row.ID,
		Title:           row.Title,
		Description:     row.Description,
		Destination:     row.Destination,
		CoverImageURL:   row.CoverImageURL,
		IsArchived:      row.IsArchived,
		OwnerID:         row.OwnerID,
		CollaboratorIDs: collaborators(row.CollaboratorIDs),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	var err error
	if row.StartDate != nil {
		if t.StartDate, err = parseDate(*row.StartDate); err != nil {
			return domain.Trip{}, err
		}
	}
	if row.EndDate != nil {
		if t.EndDate, err = parseDate(*row.EndDate); err != nil {
			return domain.Trip{}, err
		}
	}
	return t, nil
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := domain.DateOf(*t).Format(dateLayout)
	return &s
}

func byID(id string) url.Values {
	return url.Values{"id": {"eq." + id}}
}

func (r *RemoteTripRepo) Watch(ctx context.Context) <-chan Snapshot {
	return r.hub.watch(ctx)
}

// Reload re-reads the trip list for every watcher.
func (r *RemoteTripRepo) Reload(ctx context.Context) error {
	if err := r.hub.reload(ctx); err != nil {
		return fmt.Errorf("repo.RemoteTripRepo.Reload: %w", err)
	}
	return nil
}

// Listen re-reads the list whenever the hosted table changes, so edits made
// from other devices reach watchers. It blocks until ctx is done.
func (r *RemoteTripRepo) Listen(ctx context.Context, feed ChangeFeed) error {
	token, err := r.tokens(ctx)
	if err != nil {
		return fmt.Errorf("repo.RemoteTripRepo.Listen: %w", err)
	}
	return feed.Listen(ctx, r.name, token, func(c supabase.Change) {
		r.logger.Debug("remote trip change", "type", c.Type)
		r.hub.changed(ctx)
	})
}

func (r *RemoteTripRepo) List(ctx context.Context) ([]domain.Trip, error) {
	token, err := r.tokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.RemoteTripRepo.List: %w", err)
	}
	var rows []tripRow
	q := url.Values{"select": {"*"}, "order": {"created_at.desc,id.asc"}}
	if err := r.table.Select(ctx, r.name, q, token, &rows); err != nil {
		return nil, fmt.Errorf("repo.RemoteTripRepo.List: %w", err)
	}
	return rowsToTrips(rows)
}

func (r *RemoteTripRepo) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	rows, err := r.selectByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.RemoteTripRepo.GetByID: %w", err)
	}
	if len(rows) == 0 {
		return domain.Trip{}, fmt.Errorf("repo.RemoteTripRepo.GetByID: %w", domain.ErrNotFound)
	}
	t, err := rows[0].toTrip()
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.RemoteTripRepo.GetByID: %w", err)
	}
	return t, nil
}

func (r *RemoteTripRepo) Create(ctx context.Context, trip domain.Trip) (string, error) {
	token, err := r.tokens(ctx)
	if err != nil {
		return "", fmt.Errorf("repo.RemoteTripRepo.Create: %w", err)
	}

	if trip.ID == "" {
		trip.ID, err = generateID(ctx, func(ctx context.Context, id string) (bool, error) {
			rows, err := r.selectByID(ctx, id)
			return len(rows) > 0, err
		})
		if err != nil {
			return "", fmt.Errorf("repo.RemoteTripRepo.Create: %w", err)
		}
	}

	now := r.clock.Now().UTC()
	trip.CreatedAt, trip.UpdatedAt = now, now

	var out []tripRow
	if err := r.table.Insert(ctx, r.name, []tripRow{toRow(trip)}, token, &out); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("repo.RemoteTripRepo.Create: %q: %w", trip.ID, domain.ErrDuplicateID)
		}
		return "", fmt.Errorf("repo.RemoteTripRepo.Create: %w", err)
	}

	r.hub.changed(ctx)
	return trip.ID, nil
}

func (r *RemoteTripRepo) Update(ctx context.Context, trip domain.Trip) error {
	row := toRow(trip)
	patch := map[string]any{
		"title":            row.Title,
		"description":      row.Description,
		"destination":      row.Destination,
		"start_date":       row.StartDate,
		"end_date":         row.EndDate,
		"cover_image_url":  row.CoverImageURL,
		"is_archived":      row.IsArchived,
		"owner_id":         row.OwnerID,
		"collaborator_ids": row.CollaboratorIDs,
		"updated_at":       r.clock.Now().UTC(),
	}

	n, err := r.patch(ctx, trip.ID, patch)
	if err != nil {
		return fmt.Errorf("repo.RemoteTripRepo.Update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("repo.RemoteTripRepo.Update: %w", domain.ErrNotFound)
	}

	r.hub.changed(ctx)
	return nil
}

func (r *RemoteTripRepo) Delete(ctx context.Context, id string) error {
	token, err := r.tokens(ctx)
	if err != nil {
		return fmt.Errorf("repo.RemoteTripRepo.Delete: %w", err)
	}
	if err := r.table.Delete(ctx, r.name, byID(id), token); err != nil {
		return fmt.Errorf("repo.RemoteTripRepo.Delete: %w", err)
	}
	r.hub.changed(ctx)
	return nil
}

func (r *RemoteTripRepo) Archive(ctx context.Context, id string) error {
	return r.setArchived(ctx, id, true)
}

func (r *RemoteTripRepo) Unarchive(ctx context.Context, id string) error {
	return r.setArchived(ctx, id, false)
}

func (r *RemoteTripRepo) setArchived(ctx context.Context, id string, archived bool) error {
	n, err := r.patch(ctx, id, map[string]any{
		"is_archived": archived,
		"updated_at":  r.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("repo.RemoteTripRepo.setArchived: %w", err)
	}
	if n == 0 {
		r.logger.Warn("archive flag change for unknown trip", "trip_id", id, "archived", archived)
		return nil
	}

	r.hub.changed(ctx)
	return nil
}

// patch updates the row with id and reports how many rows came back.
func (r *RemoteTripRepo) patch(ctx context.Context, id string, fields map[string]any) (int, error) {
	token, err := r.tokens(ctx)
	if err != nil {
		return 0, err
	}
	var out []tripRow
	if err := r.table.Update(ctx, r.name, byID(id), fields, token, &out); err != nil {
		return 0, err
	}
	return len(out), nil
}

func (r *RemoteTripRepo) selectByID(ctx context.Context, id string) ([]tripRow, error) {
	token, err := r.tokens(ctx)
	if err != nil {
		return nil, err
	}
	var rows []tripRow
	q := byID(id)
	q.Set("select", "*")
	q.Set("limit", "1")
	if err := r.table.Select(ctx, r.name, q, token, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func rowsToTrips(rows []tripRow) ([]domain.Trip, error) {
	trips := make([]domain.Trip, 0, len(rows))
	for _, row := range rows {
		t, err := row.toTrip()
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, nil
}

// isUniqueViolation matches PostgREST's report of a primary key clash.
func isUniqueViolation(err error) bool {
	var se *supabase.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == "23505" || se.StatusCode == http.StatusConflict
}
