package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// sseHeartbeat keeps idle streams alive through proxies.
const sseHeartbeat = 15 * time.Second

// stream prepares w for Server-Sent Events. Write deadlines are lifted
// since the server's WriteTimeout would otherwise cut every stream short.
func (s *Server) stream(w http.ResponseWriter, name string) (*http.ResponseController, func()) {
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	client := uuid.NewString()
	done := s.metrics.StreamOpened(name)
	s.logger.Debug("event stream opened", "stream", name, "client", client)
	return rc, func() {
		done()
		s.logger.Debug("event stream closed", "stream", name, "client", client)
	}
}

// writeEvent writes one SSE frame with a JSON payload and flushes it.
func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, id uint64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data); err != nil {
		return err
	}
	return rc.Flush()
}

func writeHeartbeat(w http.ResponseWriter, rc *http.ResponseController) error {
	if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
		return err
	}
	return rc.Flush()
}

// TripListEvents handles GET /views/trips/events. Each frame carries the
// whole list state; the first is sent immediately.
func (s *Server) TripListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	states := s.list.Subscribe(ctx)
	rc, closed := s.stream(w, "trips")
	defer closed()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			seq++
			if err := writeEvent(w, rc, "state", seq, st); err != nil {
				return
			}
		case <-ticker.C:
			if err := writeHeartbeat(w, rc); err != nil {
				return
			}
		}
	}
}

// AuthEvents handles GET /auth/events. "state" frames carry the session
// state, current value first; "effect" frames carry one-shot UI effects
// emitted after the client connected.
func (s *Server) AuthEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	states := s.auth.Subscribe(ctx)
	effects := s.auth.Effects(ctx)
	rc, closed := s.stream(w, "auth")
	defer closed()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			seq++
			if err := writeEvent(w, rc, "state", seq, st); err != nil {
				return
			}
		case e, ok := <-effects:
			if !ok {
				return
			}
			seq++
			if err := writeEvent(w, rc, "effect", seq, e); err != nil {
				return
			}
		case <-ticker.C:
			if err := writeHeartbeat(w, rc); err != nil {
				return
			}
		}
	}
}
