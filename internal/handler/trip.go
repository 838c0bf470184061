package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/globaltrip/backend/internal/controller"
	"github.com/pkordes/globaltrip/backend/internal/domain"
)

// Trip is the wire form of domain.Trip. Dates travel as YYYY-MM-DD.
type Trip struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Destination     string              `json:"destination"`
	StartDate       *openapi_types.Date `json:"start_date,omitempty"`
	EndDate         *openapi_types.Date `json:"end_date,omitempty"`
	CoverImageURL   string              `json:"cover_image_url,omitempty"`
	IsArchived      bool                `json:"is_archived"`
	OwnerID         string              `json:"owner_id"`
	CollaboratorIDs []string            `json:"collaborator_ids"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// CreateTripRequest is the body of POST /trips.
type CreateTripRequest struct {
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Destination   string              `json:"destination"`
	StartDate     *openapi_types.Date `json:"start_date"`
	EndDate       *openapi_types.Date `json:"end_date"`
	CoverImageURL string              `json:"cover_image_url"`
}

// UpdateTripRequest is the body of PUT /trips/{id}. It replaces every
// editable field; archive state and owner are left alone.
type UpdateTripRequest struct {
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Destination     string              `json:"destination"`
	StartDate       *openapi_types.Date `json:"start_date"`
	EndDate         *openapi_types.Date `json:"end_date"`
	CoverImageURL   string              `json:"cover_image_url"`
	CollaboratorIDs []string            `json:"collaborator_ids"`
}

// TripPage is the body of GET /trips.
type TripPage struct {
	Data       []Trip     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// CreateTrip handles POST /trips. The form goes through a
// TripCreateController so the API reports the same messages as the screen.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var body CreateTripRequest
	if err := decodeJSON(r, &body); err != nil {
		badBody(w, err)
		return
	}

	form := controller.NewTripCreateController(s.trips, s.owner, s.logger, s.metrics)
	form.SetForm(controller.TripForm{
		Title:         body.Title,
		Description:   body.Description,
		Destination:   body.Destination,
		StartDate:     fromDate(body.StartDate),
		EndDate:       fromDate(body.EndDate),
		CoverImageURL: body.CoverImageURL,
	})
	st, err := form.Submit(r.Context())
	if err != nil {
		s.writeError(w, r, err, st.Error)
		return
	}

	created, err := s.trips.GetByID(r.Context(), st.TripID)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	w.Header().Set("Location", "/trips/"+created.ID)
	writeJSON(w, http.StatusCreated, tripToResponse(created))
}

// ListTrips handles GET /trips.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	var page, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		badRequest(w, "Invalid format for parameter page")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		badRequest(w, "Invalid format for parameter limit")
		return
	}

	params := domain.NewPaginationParams(page, limit)
	p, err := s.trips.ListPage(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	data := make([]Trip, len(p.Items))
	for i, t := range p.Items {
		data[i] = tripToResponse(t)
	}
	writeJSON(w, http.StatusOK, TripPage{
		Data:       data,
		Pagination: Pagination{Page: p.Page, Limit: p.Limit, Total: p.Total},
	})
}

// GetTrip handles GET /trips/{id}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	detail := controller.NewTripDetailController(s.trips, s.logger)
	st, err := detail.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, st.Error)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(*st.Trip))
}

// UpdateTrip handles PUT /trips/{id}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	var body UpdateTripRequest
	if err := decodeJSON(r, &body); err != nil {
		badBody(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	trip, err := s.trips.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	trip.Title = body.Title
	trip.Description = body.Description
	trip.Destination = body.Destination
	trip.StartDate = fromDate(body.StartDate)
	trip.EndDate = fromDate(body.EndDate)
	trip.CoverImageURL = body.CoverImageURL
	trip.CollaboratorIDs = body.CollaboratorIDs

	err = s.trips.Update(r.Context(), trip)
	s.metrics.TripWrite("update", err)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	updated, err := s.trips.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(updated))
}

// DeleteTrip handles DELETE /trips/{id}. Deleting a missing trip succeeds.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	err := s.trips.Delete(r.Context(), chi.URLParam(r, "id"))
	s.metrics.TripWrite("delete", err)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveTrip handles POST /trips/{id}/archive.
func (s *Server) ArchiveTrip(w http.ResponseWriter, r *http.Request) {
	err := s.trips.Archive(r.Context(), chi.URLParam(r, "id"))
	s.metrics.TripWrite("archive", err)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnarchiveTrip handles POST /trips/{id}/unarchive.
func (s *Server) UnarchiveTrip(w http.ResponseWriter, r *http.Request) {
	err := s.trips.Unarchive(r.Context(), chi.URLParam(r, "id"))
	s.metrics.TripWrite("unarchive", err)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- mapping helpers --------------------------------------------------------

func fromDate(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := domain.DateOf(d.Time)
	return &t
}

func toDate(t *time.Time) *openapi_types.Date {
	if t == nil {
		return nil
	}
	return &openapi_types.Date{Time: *t}
}

// tripToResponse converts a domain.Trip into its wire form.
func tripToResponse(t domain.Trip) Trip {
	collaborators := t.CollaboratorIDs
	if collaborators == nil {
		collaborators = []string{}
	}
	return Trip{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Destination:     t.Destination,
		StartDate:       toDate(t.StartDate),
		EndDate:         toDate(t.EndDate),
		CoverImageURL:   t.CoverImageURL,
		IsArchived:      t.IsArchived,
		OwnerID:         t.OwnerID,
		CollaboratorIDs: collaborators,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}
