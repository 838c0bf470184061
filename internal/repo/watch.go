package repo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkordes/globaltrip/backend/internal/broadcast"
	"github.com/pkordes/globaltrip/backend/internal/domain"
)

// refreshTimeout bounds the re-read that follows a mutation.
const refreshTimeout = 5 * time.Second

// hub turns a List function into the live stream behind TripRepo.Watch.
// Re-reads are serialised so a later mutation's list is never overwritten
// by an earlier one. With no watchers, mutations only mark the list stale.
type hub struct {
	list   func(ctx context.Context) ([]domain.Trip, error)
	logger *slog.Logger
	value  *broadcast.Value[Snapshot]

	mu    sync.Mutex
	fresh bool
}

func newHub(list func(context.Context) ([]domain.Trip, error), logger *slog.Logger) *hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &hub{list: list, logger: logger, value: broadcast.NewValue(Snapshot{})}
}

// watch subscribes under h.mu so a concurrent changed call either runs
// before the subscription (and the list is re-read here) or sees the new
// subscriber and refreshes it.
func (h *hub) watch(ctx context.Context) <-chan Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.fresh {
		_ = h.refreshLocked(ctx)
	}
	return h.value.Subscribe(ctx)
}

// reload re-reads the list unconditionally.
func (h *hub) reload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshLocked(ctx)
}

// changed is called after every successful mutation.
func (h *hub) changed(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.value.Subscribers() == 0 {
		h.fresh = false
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
	defer cancel()
	_ = h.refreshLocked(ctx)
}

func (h *hub) refreshLocked(ctx context.Context) error {
	trips, err := h.list(ctx)
	if err != nil {
		h.logger.Warn("trip list refresh failed", "error", err)
		h.fresh = false
		h.value.Set(Snapshot{Err: err})
		return err
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	h.fresh = true
	h.value.Set(Snapshot{Trips: trips})
	return nil
}
