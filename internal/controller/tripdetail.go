package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/pkordes/globaltrip/backend/internal/domain"
)

// TripGetter loads a single trip. *service.TripService satisfies it.
type TripGetter interface {
	GetByID(ctx context.Context, id string) (domain.Trip, error)
}

// TripDetailState is what the trip detail screen renders.
type TripDetailState struct {
	Trip    *domain.Trip `json:"trip,omitempty"`
	Loading bool         `json:"loading"`
	Error   string       `json:"error,omitempty"`
}

// TripDetailController loads one trip and remembers which, so Refresh can
// reload it.
type TripDetailController struct {
	getter TripGetter
	logger *slog.Logger

	mu    sync.Mutex
	id    string
	state TripDetailState
}

func NewTripDetailController(getter TripGetter, logger *slog.Logger) *TripDetailController {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TripDetailController{getter: getter, logger: logger}
}

// Load fetches trip id. A missing trip sets Error to "Trip not found" and
// returns domain.ErrNotFound; other failures keep any trip already shown.
func (c *TripDetailController) Load(ctx context.Context, id string) (TripDetailState, error) {
	c.mu.Lock()
	if c.id != id {
		c.state.Trip = nil
	}
	c.id = id
	c.state.Loading = true
	c.mu.Unlock()

	t, err := c.getter.GetByID(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.state.Trip = nil
		c.state.Error = "Trip not found"
	case err != nil:
		c.logger.Warn("trip load failed", "trip_id", id, "error", err)
		c.state.Error = "Failed to load trip: " + cause(err)
	default:
		c.state.Trip = &t
		c.state.Error = ""
	}
	return c.state, err
}

// Refresh reloads the last loaded trip. Without one it is a no-op.
func (c *TripDetailController) Refresh(ctx context.Context) (TripDetailState, error) {
	c.mu.Lock()
	id := c.id
	c.mu.Unlock()
	if id == "" {
		return c.State(), nil
	}
	return c.Load(ctx, id)
}

func (c *TripDetailController) State() TripDetailState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *TripDetailController) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Error = ""
}
