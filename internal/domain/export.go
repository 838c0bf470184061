package domain

import "time"

// TripStatus is the list section a trip falls into on a given day.
type TripStatus string

const (
	StatusUpcoming TripStatus = "upcoming"
	StatusPast     TripStatus = "past"
	StatusArchived TripStatus = "archived"
	// StatusUndated covers current trips (started, not yet ended) and trips
	// without dates; the list screens show them in no section.
	StatusUndated TripStatus = "undated"
)

// StatusOn classifies t the same way PartitionTrips does.
func (t Trip) StatusOn(today time.Time) TripStatus {
	switch {
	case t.IsArchived:
		return StatusArchived
	case t.IsUpcoming(today):
		return StatusUpcoming
	case t.IsPast(today):
		return StatusPast
	default:
		return StatusUndated
	}
}

// ExportRow is a single row in the full-data export: one row per trip,
// flattened for spreadsheets. Dates are "2006-01-02" or empty.
type ExportRow struct {
	TripID          string
	Title           string
	Destination     string
	StartDate       string
	EndDate         string
	Status          TripStatus
	OwnerID         string
	CollaboratorIDs []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
