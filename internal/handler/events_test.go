package handler_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/globaltrip/backend/internal/controller"
	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/handler"
	"github.com/pkordes/globaltrip/backend/internal/metrics"
)

type sseFrame struct {
	event string
	data  string
}

// openStream connects to an SSE endpoint and returns a reader of frames.
// The connection is closed when the test ends.
func openStream(t *testing.T, srv *httptest.Server, path string) func() sseFrame {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	br := bufio.NewReader(resp.Body)
	return func() sseFrame {
		t.Helper()
		var f sseFrame
		for {
			line, err := br.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "" && f.event != "":
				return f
			case strings.HasPrefix(line, "event: "):
				f.event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				f.data = strings.TrimPrefix(line, "data: ")
			}
		}
	}
}

func TestTripListEvents_StreamsState(t *testing.T) {
	states := make(chan controller.TripListState, 2)
	states <- controller.TripListState{Loading: true}
	list := &mockListView{states: states}
	srv := httptest.NewServer(newHTTPHandler(handler.Deps{List: list, Metrics: metrics.New()}, handler.RouterConfig{}))
	t.Cleanup(srv.Close)

	next := openStream(t, srv, "/views/trips/events")

	f := next()
	assert.Equal(t, "state", f.event)
	var first controller.TripListState
	require.NoError(t, json.Unmarshal([]byte(f.data), &first))
	assert.True(t, first.Loading)

	states <- controller.TripListState{AllTrips: []domain.Trip{tripFixture()}, SearchQuery: "rome"}
	var second controller.TripListState
	require.NoError(t, json.Unmarshal([]byte(next().data), &second))
	assert.False(t, second.Loading)
	assert.Equal(t, "rome", second.SearchQuery)
	require.Len(t, second.AllTrips, 1)
}

func TestAuthEvents_StreamsStateAndEffects(t *testing.T) {
	states := make(chan domain.AuthState, 1)
	effects := make(chan controller.Effect, 1)
	states <- domain.Unauthenticated()
	auth := &mockAuth{states: states, effects: effects}
	srv := httptest.NewServer(newHTTPHandler(handler.Deps{Auth: auth}, handler.RouterConfig{}))
	t.Cleanup(srv.Close)

	next := openStream(t, srv, "/auth/events")

	f := next()
	require.Equal(t, "state", f.event)
	var st domain.AuthState
	require.NoError(t, json.Unmarshal([]byte(f.data), &st))
	assert.Equal(t, domain.AuthUnauthenticated, st.Status)

	effects <- controller.Effect{Kind: controller.EffectShowSuccessMessage, Message: "Welcome back!"}
	f = next()
	require.Equal(t, "effect", f.event)
	var e controller.Effect
	require.NoError(t, json.Unmarshal([]byte(f.data), &e))
	assert.Equal(t, controller.Effect{Kind: controller.EffectShowSuccessMessage, Message: "Welcome back!"}, e)
}

func TestTripListEvents_EndsWhenSourceCloses(t *testing.T) {
	states := make(chan controller.TripListState)
	close(states)
	list := &mockListView{states: states}
	h := newHTTPHandler(handler.Deps{List: list}, handler.RouterConfig{})

	rec := serve(h, http.MethodGet, "/views/trips/events", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Body.String())
}
