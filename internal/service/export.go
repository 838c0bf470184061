package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkordes/globaltrip/backend/internal/clock"
	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/repo"
)

// ExportService assembles a flat export of every trip.
type ExportService struct {
	trips repo.TripRepo
	clock clock.Clock
}

// NewExportService constructs an ExportService. clk decides which trips
// count as upcoming or past; nil means the wall clock.
func NewExportService(trips repo.TripRepo, clk clock.Clock) *ExportService {
	if clk == nil {
		clk = clock.Real()
	}
	return &ExportService{trips: trips, clock: clk}
}

// Export returns one ExportRow per trip, newest first.
func (s *ExportService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	trips, err := s.trips.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}

	today := s.clock.Now()
	rows := make([]domain.ExportRow, 0, len(trips))
	for _, t := range trips {
		collaborators := t.CollaboratorIDs
		if collaborators == nil {
			collaborators = []string{}
		}
		rows = append(rows, domain.ExportRow{
			TripID:          t.ID,
			Title:           t.Title,
			Destination:     t.Destination,
			StartDate:       formatDate(t.StartDate),
			EndDate:         formatDate(t.EndDate),
			Status:          t.StatusOn(today),
			OwnerID:         t.OwnerID,
			CollaboratorIDs: collaborators,
			CreatedAt:       t.CreatedAt,
			UpdatedAt:       t.UpdatedAt,
		})
	}
	return rows, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
