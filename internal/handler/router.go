package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/globaltrip/backend/internal/middleware"
)

// RouterConfig holds the transport settings applied around the handlers.
// Zero values disable CORS, the body limit and auth rate limiting.
type RouterConfig struct {
	CORSOrigins  []string
	MaxBodyBytes int64
	AuthLimiter  *middleware.RateLimiter
}

// NewRouter mounts every route on a chi router.
// Middleware order: RequestID → RealIP → SlogLogger → Recoverer → CORS →
// MaxBodySize → metrics.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	}
	if cfg.MaxBodyBytes > 0 {
		r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	}
	r.Use(s.metrics.Instrument)

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/trips", func(r chi.Router) {
		r.Get("/", s.ListTrips)
		r.Post("/", s.CreateTrip)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetTrip)
			r.Put("/", s.UpdateTrip)
			r.Delete("/", s.DeleteTrip)
			r.Post("/archive", s.ArchiveTrip)
			r.Post("/unarchive", s.UnarchiveTrip)
		})
	})

	if s.export != nil {
		r.Get("/export", s.GetExport)
	}

	r.Route("/views/trips", func(r chi.Router) {
		r.Get("/", s.GetTripListView)
		r.Get("/events", s.TripListEvents)
		r.Put("/search", s.UpdateSearch)
		r.Delete("/search", s.ClearSearch)
		r.Post("/search/toggle", s.ToggleSearch)
		r.Delete("/error", s.ClearTripListError)
		r.Post("/reload", s.ReloadTripList)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/session", s.GetSession)
		r.Get("/events", s.AuthEvents)
		r.Group(func(r chi.Router) {
			if cfg.AuthLimiter != nil {
				r.Use(cfg.AuthLimiter.Handler)
			}
			r.Post("/sign-in", s.SignIn)
			r.Post("/sign-up", s.SignUp)
			r.Post("/sign-out", s.SignOut)
			r.Post("/reset-password", s.ResetPassword)
			r.Post("/refresh", s.RefreshSession)
		})
	})

	return r
}
