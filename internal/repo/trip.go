// Package repo contains trip persistence for the planner.
// TripRepo is the contract; Postgres, SQLite (local) and Supabase REST
// (remote) implement it interchangeably. No business rules live here, only
// storage and type mapping.
package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/globaltrip/backend/internal/domain"
)

// Snapshot is one emission of the live trip list. When a re-read fails,
// Trips is nil and Err is set; the stream itself keeps going.
type Snapshot struct {
	Trips []domain.Trip
	Err   error
}

// TripRepo defines the persistence operations for Trips.
// The service and controller layers depend on this interface only.
type TripRepo interface {
	// Watch returns the live trip list: the current list first, then a fresh
	// list after every mutation. The channel closes when ctx is done.
	Watch(ctx context.Context) <-chan Snapshot

	// Reload re-reads the list and pushes it to every watcher, whether or
	// not anything changed. A failed read is also delivered as a Snapshot.
	Reload(ctx context.Context) error

	// List returns all trips, most recently created first.
	List(ctx context.Context) ([]domain.Trip, error)

	// GetByID returns domain.ErrNotFound if no trip has that id.
	GetByID(ctx context.Context, id string) (domain.Trip, error)

	// Create stores a new trip and returns its id. A blank trip.ID gets a
	// freshly generated unique id; a caller-supplied id already in use fails
	// with domain.ErrDuplicateID. CreatedAt/UpdatedAt are set by the store.
	Create(ctx context.Context, trip domain.Trip) (string, error)

	// Update replaces every field of the stored trip with the same id,
	// keeping CreatedAt and bumping UpdatedAt. Last write wins.
	// Returns domain.ErrNotFound if no trip has that id.
	Update(ctx context.Context, trip domain.Trip) error

	// Delete removes a trip. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// Archive and Unarchive set or clear the archived flag and bump
	// UpdatedAt. A missing id is logged, not returned as an error.
	Archive(ctx context.Context, id string) error
	Unarchive(ctx context.Context, id string) error
}

const (
	maxIDAttempts = 8
	dateLayout    = "2006-01-02"
)

// generateID draws UUIDs until exists reports one as free.
func generateID(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for range maxIDAttempts {
		id := uuid.NewString()
		taken, err := exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check id: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no free trip id after %d attempts", domain.ErrDuplicateID, maxIDAttempts)
}

// formatDate renders an optional calendar date for storage.
func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return domain.DateOf(*t).Format(dateLayout)
}

// parseDate reads a stored calendar date; blank means none.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", s, err)
	}
	return &t, nil
}

func joinIDs(ids []string) string { return strings.Join(ids, ",") }

func splitIDs(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func collaborators(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
