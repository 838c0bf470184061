package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/globaltrip/backend/internal/clock"
	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/service"
)

// ---- Export ----------------------------------------------------------------

func TestExportService_Export_FlattensTrips(t *testing.T) {
	today := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	upcoming := validTrip()
	upcoming.ID = "rome"
	upcoming.OwnerID = "user-1"
	upcoming.CollaboratorIDs = []string{"user-2", "user-3"}
	past := domain.Trip{ID: "paris", Title: "Paris", StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 5)}
	archived := domain.Trip{ID: "oslo", Title: "Oslo", IsArchived: true}
	sketch := domain.Trip{ID: "sketch", Title: "Someday"}

	svc := service.NewExportService(&mockTripRepo{
		list: func(context.Context) ([]domain.Trip, error) {
			return []domain.Trip{upcoming, past, archived, sketch}, nil
		},
	}, clock.NewFake(today))

	rows, err := svc.Export(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "rome", rows[0].TripID)
	assert.Equal(t, "2025-07-15", rows[0].StartDate)
	assert.Equal(t, "2025-07-20", rows[0].EndDate)
	assert.Equal(t, domain.StatusUpcoming, rows[0].Status)
	assert.Equal(t, []string{"user-2", "user-3"}, rows[0].CollaboratorIDs)
	assert.Equal(t, domain.StatusPast, rows[1].Status)
	assert.Equal(t, domain.StatusArchived, rows[2].Status)
	assert.Equal(t, domain.StatusUndated, rows[3].Status)
	assert.Empty(t, rows[3].StartDate)
	assert.Equal(t, []string{}, rows[3].CollaboratorIDs)
}

func TestExportService_Export_Empty(t *testing.T) {
	svc := service.NewExportService(&mockTripRepo{
		list: func(context.Context) ([]domain.Trip, error) { return nil, nil },
	}, nil)

	rows, err := svc.Export(context.Background())

	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
}

func TestExportService_Export_RepoError(t *testing.T) {
	svc := service.NewExportService(&mockTripRepo{
		list: func(context.Context) ([]domain.Trip, error) { return nil, errors.New("db down") },
	}, nil)

	_, err := svc.Export(context.Background())

	require.ErrorContains(t, err, "service.ExportService.Export: db down")
}
