package controller

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkordes/globaltrip/backend/internal/broadcast"
	"github.com/pkordes/globaltrip/backend/internal/clock"
	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/metrics"
	"github.com/pkordes/globaltrip/backend/internal/repo"
)

// DefaultSearchDebounce is how long the query must stay unchanged before a
// search runs.
const DefaultSearchDebounce = 300 * time.Millisecond

// TripSource is the live trip list; repo.TripRepo and service.TripService
// both satisfy it. Reload results arrive on the Watch stream.
type TripSource interface {
	Watch(ctx context.Context) <-chan repo.Snapshot
	Reload(ctx context.Context) error
}

// TripListState is everything the trip list screens render.
type TripListState struct {
	AllTrips      []domain.Trip `json:"all_trips"`
	Upcoming      []domain.Trip `json:"upcoming"`
	Past          []domain.Trip `json:"past"`
	Archived      []domain.Trip `json:"archived"`
	FilteredTrips []domain.Trip `json:"filtered_trips"`
	SearchQuery   string        `json:"search_query"`
	SearchActive  bool          `json:"search_active"`
	Loading       bool          `json:"loading"`
	Error         string        `json:"error,omitempty"`
}

// ListOptions configures a TripListController. Zero values are usable.
type ListOptions struct {
	Clock    clock.Clock
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Debounce time.Duration
}

// TripListController partitions the live trip list and runs debounced
// searches over it. Each new query supersedes the pending one: its timer is
// stopped and, should it fire anyway, the generation check drops its result.
type TripListController struct {
	src      TripSource
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
	debounce time.Duration

	state *broadcast.Value[TripListState]

	mu      sync.Mutex
	gen     uint64
	pending clock.Timer
}

func NewTripListController(src TripSource, opts ListOptions) *TripListController {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultSearchDebounce
	}
	return &TripListController{
		src:      src,
		clock:    opts.Clock,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		debounce: opts.Debounce,
		state: broadcast.NewValue(TripListState{
			AllTrips:      []domain.Trip{},
			Upcoming:      []domain.Trip{},
			Past:          []domain.Trip{},
			Archived:      []domain.Trip{},
			FilteredTrips: []domain.Trip{},
			Loading:       true,
		}),
	}
}

// Start consumes the live list until ctx is done. The returned channel is
// closed once the source stream ends.
func (c *TripListController) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range c.src.Watch(ctx) {
			c.apply(snap)
		}
	}()
	return done
}

// apply folds one snapshot into the state. Partitions use the date at the
// moment of emission. A failed read keeps the trips already shown; the next
// good read clears its error.
func (c *TripListController) apply(snap repo.Snapshot) {
	if snap.Err != nil {
		c.logger.Warn("trip list load failed", "error", snap.Err)
		c.state.Update(func(s TripListState) TripListState {
			s.Loading = false
			s.Error = "Failed to load trips: " + cause(snap.Err)
			return s
		})
		return
	}

	parts := domain.PartitionTrips(snap.Trips, c.clock.Now())
	c.state.Update(func(s TripListState) TripListState {
		s.AllTrips = snap.Trips
		s.Upcoming = parts.Upcoming
		s.Past = parts.Past
		s.Archived = parts.Archived
		if strings.TrimSpace(s.SearchQuery) != "" {
			s.FilteredTrips = domain.FilterTrips(snap.Trips, s.SearchQuery)
		}
		s.Loading = false
		s.Error = ""
		return s
	})
}

// Reload shows the loading state and asks the source for a fresh list. The
// list itself arrives through Start; a failed request is shown right away.
func (c *TripListController) Reload(ctx context.Context) error {
	c.state.Update(func(s TripListState) TripListState {
		s.Loading = true
		s.Error = ""
		return s
	})
	if err := c.src.Reload(ctx); err != nil {
		c.logger.Warn("trip list reload failed", "error", err)
		c.state.Update(func(s TripListState) TripListState {
			s.Loading = false
			s.Error = "Failed to load trips: " + cause(err)
			return s
		})
		return err
	}
	return nil
}

// State returns the current list state.
func (c *TripListController) State() TripListState { return c.state.Get() }

// Subscribe streams the list state, current value first.
func (c *TripListController) Subscribe(ctx context.Context) <-chan TripListState {
	return c.state.Subscribe(ctx)
}

// UpdateSearchQuery records q and schedules a search after the debounce
// window. A blank query clears the results at once.
func (c *TripListController) UpdateSearchQuery(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.supersedeLocked()
	c.state.Update(func(s TripListState) TripListState {
		s.SearchQuery = q
		if strings.TrimSpace(q) == "" {
			s.FilteredTrips = []domain.Trip{}
		}
		return s
	})
	if strings.TrimSpace(q) == "" {
		return
	}

	c.pending = c.clock.AfterFunc(c.debounce, func() { c.runSearch(gen, q) })
}

func (c *TripListController) runSearch(gen uint64, q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.pending = nil
	c.state.Update(func(s TripListState) TripListState {
		s.FilteredTrips = domain.FilterTrips(s.AllTrips, q)
		return s
	})
	c.metrics.SearchCompleted()
}

// supersedeLocked cancels any pending search and returns the new generation.
func (c *TripListController) supersedeLocked() uint64 {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.gen++
	return c.gen
}

// ToggleSearch opens or closes the search bar. Closing it clears the search.
func (c *TripListController) ToggleSearch() {
	s := c.state.Update(func(s TripListState) TripListState {
		s.SearchActive = !s.SearchActive
		return s
	})
	if !s.SearchActive {
		c.ClearSearch()
	}
}

// ClearSearch drops the query, its results and any pending search.
func (c *TripListController) ClearSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersedeLocked()
	c.state.Update(func(s TripListState) TripListState {
		s.SearchQuery = ""
		s.FilteredTrips = []domain.Trip{}
		return s
	})
}

// ClearError dismisses the load error.
func (c *TripListController) ClearError() {
	c.state.Update(func(s TripListState) TripListState {
		s.Error = ""
		return s
	})
}
