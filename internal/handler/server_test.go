package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pkordes/globaltrip/backend/internal/controller"
	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/handler"
)

// mockTripServicer is a test double for handler.TripServicer.
// Set only the method fields your test needs.
type mockTripServicer struct {
	create    func(ctx context.Context, trip domain.Trip) (string, error)
	getByID   func(ctx context.Context, id string) (domain.Trip, error)
	listPage  func(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.Trip], error)
	update    func(ctx context.Context, trip domain.Trip) error
	delete    func(ctx context.Context, id string) error
	archive   func(ctx context.Context, id string) error
	unarchive func(ctx context.Context, id string) error
}

func (m *mockTripServicer) Create(ctx context.Context, t domain.Trip) (string, error) {
	return m.create(ctx, t)
}
func (m *mockTripServicer) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripServicer) ListPage(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.Trip], error) {
	return m.listPage(ctx, p)
}
func (m *mockTripServicer) Update(ctx context.Context, t domain.Trip) error {
	return m.update(ctx, t)
}
func (m *mockTripServicer) Delete(ctx context.Context, id string) error {
	return m.delete(ctx, id)
}
func (m *mockTripServicer) Archive(ctx context.Context, id string) error {
	return m.archive(ctx, id)
}
func (m *mockTripServicer) Unarchive(ctx context.Context, id string) error {
	return m.unarchive(ctx, id)
}

var _ handler.TripServicer = (*mockTripServicer)(nil)

// mockListView records intents and serves a fixed state.
type mockListView struct {
	state     controller.TripListState
	states    chan controller.TripListState
	queries   []string
	toggled   int
	cleared   int
	errsClear int
	reload    func(ctx context.Context) error
}

func (m *mockListView) State() controller.TripListState { return m.state }
func (m *mockListView) Subscribe(context.Context) <-chan controller.TripListState {
	return m.states
}
func (m *mockListView) UpdateSearchQuery(q string) {
	m.queries = append(m.queries, q)
	m.state.SearchQuery = q
}
func (m *mockListView) ToggleSearch() { m.toggled++ }
func (m *mockListView) ClearSearch()  { m.cleared++ }
func (m *mockListView) ClearError()   { m.errsClear++ }
func (m *mockListView) Reload(ctx context.Context) error {
	return m.reload(ctx)
}

var _ handler.TripListView = (*mockListView)(nil)

// mockAuth is a test double for handler.AuthSession.
type mockAuth struct {
	state          domain.AuthState
	valid          bool
	states         chan domain.AuthState
	effects        chan controller.Effect
	signIn         func(ctx context.Context, email, password string) error
	signUp         func(ctx context.Context, email, password, name string) error
	signOut        func(ctx context.Context) error
	resetPassword  func(ctx context.Context, email string) error
	refreshSession func(ctx context.Context) error
}

func (m *mockAuth) State() domain.AuthState { return m.state }
func (m *mockAuth) Subscribe(context.Context) <-chan domain.AuthState {
	return m.states
}
func (m *mockAuth) Effects(context.Context) <-chan controller.Effect { return m.effects }
func (m *mockAuth) SignIn(ctx context.Context, email, password string) error {
	return m.signIn(ctx, email, password)
}
func (m *mockAuth) SignUp(ctx context.Context, email, password, name string) error {
	return m.signUp(ctx, email, password, name)
}
func (m *mockAuth) SignOut(ctx context.Context) error { return m.signOut(ctx) }
func (m *mockAuth) ResetPassword(ctx context.Context, email string) error {
	return m.resetPassword(ctx, email)
}
func (m *mockAuth) RefreshSession(ctx context.Context) error { return m.refreshSession(ctx) }
func (m *mockAuth) IsSessionValid(context.Context) bool      { return m.valid }

var _ handler.AuthSession = (*mockAuth)(nil)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server into the router the same way main.go does.
func newHTTPHandler(deps handler.Deps, cfg handler.RouterConfig) http.Handler {
	if deps.Trips == nil {
		deps.Trips = &mockTripServicer{}
	}
	if deps.List == nil {
		deps.List = &mockListView{}
	}
	if deps.Auth == nil {
		deps.Auth = &mockAuth{state: domain.Unauthenticated()}
	}
	return handler.NewRouter(handler.NewServer(deps), cfg)
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func tripFixture() domain.Trip {
	return domain.Trip{
		ID:              "trip-1",
		Title:           "Rome Trip",
		Description:     "Summer in Italy",
		Destination:     "Rome, Italy",
		StartDate:       date(2025, 7, 15),
		EndDate:         date(2025, 7, 20),
		OwnerID:         "user-1",
		CollaboratorIDs: []string{"user-2"},
		CreatedAt:       time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func serve(h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}
