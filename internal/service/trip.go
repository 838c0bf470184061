// Package service contains the business rules for trips.
// Services validate inputs and orchestrate repo calls; no storage code lives
// here. Services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/repo"
)

// TripService implements business logic for Trip operations.
type TripService struct {
	repo repo.TripRepo
}

// NewTripService constructs a TripService backed by the provided TripRepo.
func NewTripService(r repo.TripRepo) *TripService {
	return &TripService{repo: r}
}

// ValidateTripCreation checks the fields a new trip must carry. The returned
// error wraps domain.ErrValidation and its text after the prefix is the
// sentence shown to the user.
func ValidateTripCreation(trip domain.Trip) error {
	switch {
	case strings.TrimSpace(trip.Title) == "":
		return fmt.Errorf("%w: Title is required", domain.ErrValidation)
	case trip.StartDate == nil:
		return fmt.Errorf("%w: Start date is required", domain.ErrValidation)
	case trip.EndDate == nil:
		return fmt.Errorf("%w: End date is required", domain.ErrValidation)
	}
	return validateDateOrder(trip)
}

func validateDateOrder(trip domain.Trip) error {
	if trip.StartDate != nil && trip.EndDate != nil &&
		domain.DateOf(*trip.StartDate).After(domain.DateOf(*trip.EndDate)) {
		return fmt.Errorf("%w: Start date cannot be after end date", domain.ErrValidation)
	}
	return nil
}

// ValidationMessage strips the ErrValidation prefix from err, leaving the
// user-facing sentence.
func ValidationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
}

// normalize trims the free-text fields and drops time-of-day from the dates.
func normalize(trip domain.Trip) domain.Trip {
	trip.ID = strings.TrimSpace(trip.ID)
	trip.Title = strings.TrimSpace(trip.Title)
	trip.Description = strings.TrimSpace(trip.Description)
	trip.Destination = strings.TrimSpace(trip.Destination)
	trip.CoverImageURL = strings.TrimSpace(trip.CoverImageURL)
	if trip.StartDate != nil {
		d := domain.DateOf(*trip.StartDate)
		trip.StartDate = &d
	}
	if trip.EndDate != nil {
		d := domain.DateOf(*trip.EndDate)
		trip.EndDate = &d
	}
	if trip.CollaboratorIDs == nil {
		trip.CollaboratorIDs = []string{}
	}
	return trip
}

// Create validates and persists a new trip, returning its id.
func (s *TripService) Create(ctx context.Context, trip domain.Trip) (string, error) {
	trip = normalize(trip)
	if err := ValidateTripCreation(trip); err != nil {
		return "", err
	}

	id, err := s.repo.Create(ctx, trip)
	if err != nil {
		return "", fmt.Errorf("service.TripService.Create: %w", err)
	}
	return id, nil
}

// GetByID returns a single trip by ID.
func (s *TripService) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	return t, nil
}

// List returns all trips, newest first.
func (s *TripService) List(ctx context.Context) ([]domain.Trip, error) {
	trips, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.List: %w", err)
	}
	return trips, nil
}

// ListPage returns one page of the trip list.
func (s *TripService) ListPage(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.Trip], error) {
	trips, err := s.List(ctx)
	if err != nil {
		return domain.Page[domain.Trip]{}, err
	}
	start, end := p.Window(len(trips))
	return domain.Page[domain.Trip]{
		Items: trips[start:end],
		Total: len(trips),
		Page:  p.Page,
		Limit: p.Limit,
	}, nil
}

// Watch exposes the store's live list.
func (s *TripService) Watch(ctx context.Context) <-chan repo.Snapshot {
	return s.repo.Watch(ctx)
}

// Reload asks the store to re-read the live list.
func (s *TripService) Reload(ctx context.Context) error {
	if err := s.repo.Reload(ctx); err != nil {
		return fmt.Errorf("service.TripService.Reload: %w", err)
	}
	return nil
}

// Update replaces an existing trip. Dates stay optional on edit, but when
// both are set they must be in order.
func (s *TripService) Update(ctx context.Context, trip domain.Trip) error {
	trip = normalize(trip)
	if trip.Title == "" {
		return fmt.Errorf("%w: Title is required", domain.ErrValidation)
	}
	if err := validateDateOrder(trip); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, trip); err != nil {
		return fmt.Errorf("service.TripService.Update: %w", err)
	}
	return nil
}

// Delete removes a trip. Missing trips are not an error.
func (s *TripService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}

func (s *TripService) Archive(ctx context.Context, id string) error {
	if err := s.repo.Archive(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Archive: %w", err)
	}
	return nil
}

func (s *TripService) Unarchive(ctx context.Context, id string) error {
	if err := s.repo.Unarchive(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Unarchive: %w", err)
	}
	return nil
}
