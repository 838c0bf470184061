// Package handler implements the HTTP surface of the trip planner daemon.
// Screens send intents as JSON requests and observe controller state over
// Server-Sent Events. All handlers are methods on Server; they are split into
// files by concern (trip.go, views.go, auth.go, events.go) but share its
// dependencies.
package handler

import (
	"context"
	"log/slog"

	"github.com/pkordes/globaltrip/backend/internal/controller"
	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/metrics"
)

// TripServicer defines the trip operations the handlers depend on.
// *service.TripService satisfies it.
type TripServicer interface {
	Create(ctx context.Context, trip domain.Trip) (string, error)
	GetByID(ctx context.Context, id string) (domain.Trip, error)
	ListPage(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.Trip], error)
	Update(ctx context.Context, trip domain.Trip) error
	Delete(ctx context.Context, id string) error
	Archive(ctx context.Context, id string) error
	Unarchive(ctx context.Context, id string) error
}

// TripListView is the trip list screen's controller.
// *controller.TripListController satisfies it.
type TripListView interface {
	State() controller.TripListState
	Subscribe(ctx context.Context) <-chan controller.TripListState
	UpdateSearchQuery(q string)
	ToggleSearch()
	ClearSearch()
	ClearError()
	Reload(ctx context.Context) error
}

// AuthSession is the session controller. *controller.AuthController
// satisfies it.
type AuthSession interface {
	State() domain.AuthState
	Subscribe(ctx context.Context) <-chan domain.AuthState
	Effects(ctx context.Context) <-chan controller.Effect
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password, name string) error
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
	RefreshSession(ctx context.Context) error
	IsSessionValid(ctx context.Context) bool
}

var (
	_ TripListView = (*controller.TripListController)(nil)
	_ AuthSession  = (*controller.AuthController)(nil)
)

// Deps are the Server's collaborators. Export, Metrics and Logger may be nil.
type Deps struct {
	Trips   TripServicer
	List    TripListView
	Auth    AuthSession
	Export  ExportServicer
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Server holds the controllers every handler drives.
type Server struct {
	trips   TripServicer
	list    TripListView
	auth    AuthSession
	export  ExportServicer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		trips:   d.Trips,
		list:    d.List,
		auth:    d.Auth,
		export:  d.Export,
		metrics: d.Metrics,
		logger:  d.Logger,
	}
}

// owner returns the signed-in user's id, or "" when nobody is signed in.
func (s *Server) owner() string {
	if s.auth == nil {
		return ""
	}
	if st := s.auth.State(); st.IsAuthenticated() {
		return st.User.ID
	}
	return ""
}
