package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/metrics"
	"github.com/pkordes/globaltrip/backend/internal/service"
)

// TripCreator persists a validated trip. *service.TripService satisfies it.
type TripCreator interface {
	Create(ctx context.Context, trip domain.Trip) (string, error)
}

// TripForm is the editable create-trip form.
type TripForm struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Destination   string     `json:"destination"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	CoverImageURL string     `json:"cover_image_url,omitempty"`
}

// TripCreateState is the form plus the outcome of the last submit.
type TripCreateState struct {
	Form    TripForm `json:"form"`
	Loading bool     `json:"loading"`
	Error   string   `json:"error,omitempty"`
	TripID  string   `json:"trip_id,omitempty"`
	Success bool     `json:"success"`
}

// TripCreateController backs the create-trip form. owner supplies the
// signed-in user's id at submit time; it may be nil.
type TripCreateController struct {
	creator TripCreator
	owner   func() string
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	state TripCreateState
}

func NewTripCreateController(creator TripCreator, owner func() string, logger *slog.Logger, m *metrics.Metrics) *TripCreateController {
	if owner == nil {
		owner = func() string { return "" }
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TripCreateController{creator: creator, owner: owner, logger: logger, metrics: m}
}

func (c *TripCreateController) edit(fn func(f *TripForm)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state.Form)
	c.state.Error = ""
}

func (c *TripCreateController) SetTitle(v string)       { c.edit(func(f *TripForm) { f.Title = v }) }
func (c *TripCreateController) SetDescription(v string) { c.edit(func(f *TripForm) { f.Description = v }) }
func (c *TripCreateController) SetDestination(v string) { c.edit(func(f *TripForm) { f.Destination = v }) }
func (c *TripCreateController) SetCoverImageURL(v string) {
	c.edit(func(f *TripForm) { f.CoverImageURL = v })
}
func (c *TripCreateController) SetStartDate(v *time.Time) { c.edit(func(f *TripForm) { f.StartDate = v }) }
func (c *TripCreateController) SetEndDate(v *time.Time)   { c.edit(func(f *TripForm) { f.EndDate = v }) }

// SetForm replaces every field at once.
func (c *TripCreateController) SetForm(form TripForm) {
	c.edit(func(f *TripForm) { *f = form })
}

// State returns a copy of the current form state.
func (c *TripCreateController) State() TripCreateState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsValid reports whether Submit would accept the form: a title, both
// dates, in order. Destination is optional.
func (c *TripCreateController) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.state.Form
	return service.ValidateTripCreation(f.trip()) == nil
}

// ClearError dismisses the last submit error.
func (c *TripCreateController) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Error = ""
}

// Submit validates and stores the trip. On failure Error holds the
// validation sentence or "Failed to create trip: <cause>". A second Submit
// while one is running fails with domain.ErrBusy.
func (c *TripCreateController) Submit(ctx context.Context) (TripCreateState, error) {
	c.mu.Lock()
	if c.state.Loading {
		c.mu.Unlock()
		return TripCreateState{}, domain.ErrBusy
	}
	trip := c.state.Form.trip()
	if err := service.ValidateTripCreation(trip); err != nil {
		c.state.Error = service.ValidationMessage(err)
		s := c.state
		c.mu.Unlock()
		return s, err
	}
	c.state.Loading = true
	c.state.Error = ""
	c.mu.Unlock()

	trip.OwnerID = c.owner()
	id, err := c.creator.Create(ctx, trip)
	c.metrics.TripWrite("create", err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	if err != nil {
		c.logger.Warn("trip create failed", "error", err)
		if errors.Is(err, domain.ErrValidation) {
			c.state.Error = service.ValidationMessage(err)
		} else {
			c.state.Error = "Failed to create trip: " + cause(err)
		}
		return c.state, err
	}
	c.state.TripID = id
	c.state.Success = true
	return c.state, nil
}

func (f TripForm) trip() domain.Trip {
	return domain.Trip{
		Title:         f.Title,
		Description:   f.Description,
		Destination:   f.Destination,
		StartDate:     f.StartDate,
		EndDate:       f.EndDate,
		CoverImageURL: f.CoverImageURL,
	}
}
