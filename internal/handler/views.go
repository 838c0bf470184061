package handler

import "net/http"

// SearchRequest is the body of PUT /views/trips/search.
type SearchRequest struct {
	Query string `json:"query"`
}

// GetTripListView handles GET /views/trips.
func (s *Server) GetTripListView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.list.State())
}

// UpdateSearch handles PUT /views/trips/search. The query is recorded at
// once; results follow on the event stream after the debounce window, so
// the reply is 202.
func (s *Server) UpdateSearch(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := decodeJSON(r, &body); err != nil {
		badBody(w, err)
		return
	}
	s.list.UpdateSearchQuery(body.Query)
	writeJSON(w, http.StatusAccepted, s.list.State())
}

// ClearSearch handles DELETE /views/trips/search.
func (s *Server) ClearSearch(w http.ResponseWriter, _ *http.Request) {
	s.list.ClearSearch()
	writeJSON(w, http.StatusOK, s.list.State())
}

// ToggleSearch handles POST /views/trips/search/toggle.
func (s *Server) ToggleSearch(w http.ResponseWriter, _ *http.Request) {
	s.list.ToggleSearch()
	writeJSON(w, http.StatusOK, s.list.State())
}

// ReloadTripList handles POST /views/trips/reload. The fresh list follows on
// the event stream, so success replies 202 with the loading state.
func (s *Server) ReloadTripList(w http.ResponseWriter, r *http.Request) {
	if err := s.list.Reload(r.Context()); err != nil {
		s.writeError(w, r, err, s.list.State().Error)
		return
	}
	writeJSON(w, http.StatusAccepted, s.list.State())
}

// ClearTripListError handles DELETE /views/trips/error.
func (s *Server) ClearTripListError(w http.ResponseWriter, _ *http.Request) {
	s.list.ClearError()
	writeJSON(w, http.StatusOK, s.list.State())
}
