package handler

import (
	"net/http"

	"github.com/pkordes/globaltrip/backend/internal/domain"
)

// Credentials is the body of POST /auth/sign-in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpRequest is the body of POST /auth/sign-up.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Email string `json:"email"`
}

// SessionResponse is the body of GET /auth/session and of every successful
// auth intent.
type SessionResponse struct {
	State        domain.AuthStatus `json:"state"`
	User         *domain.AuthUser  `json:"user,omitempty"`
	SessionValid bool              `json:"session_valid"`
}

func (s *Server) session(r *http.Request) SessionResponse {
	st := s.auth.State()
	return SessionResponse{
		State:        st.Status,
		User:         st.User,
		SessionValid: s.auth.IsSessionValid(r.Context()),
	}
}

// GetSession handles GET /auth/session.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session(r))
}

// SignIn handles POST /auth/sign-in.
func (s *Server) SignIn(w http.ResponseWriter, r *http.Request) {
	var body Credentials
	if err := decodeJSON(r, &body); err != nil {
		badBody(w, err)
		return
	}
	if err := s.auth.SignIn(r.Context(), body.Email, body.Password); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, s.session(r))
}

// SignUp handles POST /auth/sign-up. When the provider wants the email
// confirmed first the state stays unauthenticated; the "check your email"
// message arrives on the auth event stream.
func (s *Server) SignUp(w http.ResponseWriter, r *http.Request) {
	var body SignUpRequest
	if err := decodeJSON(r, &body); err != nil {
		badBody(w, err)
		return
	}
	if err := s.auth.SignUp(r.Context(), body.Email, body.Password, body.Name); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, s.session(r))
}

// SignOut handles POST /auth/sign-out.
func (s *Server) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context()); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword handles POST /auth/reset-password.
func (s *Server) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body ResetPasswordRequest
	if err := decodeJSON(r, &body); err != nil {
		badBody(w, err)
		return
	}
	if err := s.auth.ResetPassword(r.Context(), body.Email); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// RefreshSession handles POST /auth/refresh.
func (s *Server) RefreshSession(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.RefreshSession(r.Context()); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, s.session(r))
}
