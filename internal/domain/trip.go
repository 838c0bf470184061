// Package domain contains the core data types for the trip planner.
// It has no knowledge of storage, transport or the identity provider and is
// imported by every other internal package.
package domain

import (
	"strings"
	"time"
)

// Trip is a planned journey owned by a single user.
// StartDate and EndDate carry a calendar date only (midnight UTC); both are
// optional while a trip is still being sketched out.
type Trip struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Destination     string     `json:"destination"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	CoverImageURL   string     `json:"cover_image_url,omitempty"`
	IsArchived      bool       `json:"is_archived"`
	OwnerID         string     `json:"owner_id"`
	CollaboratorIDs []string   `json:"collaborator_ids"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsUpcoming reports whether the trip starts on or after today and is not archived.
func (t Trip) IsUpcoming(today time.Time) bool {
	if t.IsArchived || t.StartDate == nil {
		return false
	}
	return !DateOf(*t.StartDate).Before(DateOf(today))
}

// IsPast reports whether the trip ended strictly before today and is not archived.
// A trip ending today is still current, not past.
func (t Trip) IsPast(today time.Time) bool {
	if t.IsArchived || t.EndDate == nil {
		return false
	}
	return DateOf(*t.EndDate).Before(DateOf(today))
}

// TripPartitions groups trips for the list screens.
type TripPartitions struct {
	Upcoming []Trip
	Past     []Trip
	Archived []Trip
}

// PartitionTrips splits trips into upcoming, past and archived relative to today.
// Input order is preserved within each group. A non-archived trip with no
// start date and no end date lands in none of the groups.
func PartitionTrips(trips []Trip, today time.Time) TripPartitions {
	p := TripPartitions{
		Upcoming: []Trip{},
		Past:     []Trip{},
		Archived: []Trip{},
	}
	for _, t := range trips {
		switch {
		case t.IsArchived:
			p.Archived = append(p.Archived, t)
		case t.IsUpcoming(today):
			p.Upcoming = append(p.Upcoming, t)
		case t.IsPast(today):
			p.Past = append(p.Past, t)
		}
	}
	return p
}

// FilterTrips returns the trips whose title or destination contains query,
// ignoring case. A blank query returns trips unchanged.
func FilterTrips(trips []Trip, query string) []Trip {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return trips
	}
	out := []Trip{}
	for _, t := range trips {
		if strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Destination), q) {
			out = append(out, t)
		}
	}
	return out
}
