package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/service"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var authStatus = map[domain.AuthErrorKind]int{
	domain.AuthInvalidCredentials: http.StatusUnauthorized,
	domain.AuthUserNotFound:       http.StatusUnauthorized,
	domain.AuthEmailNotVerified:   http.StatusUnauthorized,
	domain.AuthSessionExpired:     http.StatusUnauthorized,
	domain.AuthEmailAlreadyExists: http.StatusConflict,
	domain.AuthWeakPassword:       http.StatusUnprocessableEntity,
	domain.AuthNetworkError:       http.StatusServiceUnavailable,
}

// errorResponse maps err onto a status code and body. message, when
// non-empty, replaces the default sentence for validation and store errors.
func errorResponse(err error, message string) (int, ErrorResponse) {
	var ae *domain.AuthError
	switch {
	case errors.As(err, &ae):
		status, ok := authStatus[ae.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		return status, ErrorResponse{Code: string(ae.Kind), Message: ae.UserMessage()}
	case errors.Is(err, domain.ErrValidation):
		if message == "" {
			message = service.ValidationMessage(err)
		}
		return http.StatusBadRequest, ErrorResponse{Code: "validation_error", Message: message}
	case errors.Is(err, domain.ErrNotFound):
		if message == "" {
			message = "Trip not found"
		}
		return http.StatusNotFound, ErrorResponse{Code: "not_found", Message: message}
	case errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict, ErrorResponse{Code: "duplicate_id", Message: orDefault(message, "A trip with this id already exists")}
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict, ErrorResponse{Code: "busy", Message: "Another request is still in progress"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Code: "internal_error", Message: orDefault(message, "An unexpected error occurred")}
	}
}

// writeError writes err as JSON. Unclassified errors are logged since the
// client only ever sees a generic sentence for them.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status, body := errorResponse(err, message)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

// badRequest rejects input that never reached a controller, e.g. malformed JSON.
func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "bad_request", Message: message})
}

// badBody answers a request whose JSON body could not be decoded.
func badBody(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Code: "request_too_large", Message: "Request body is too large"})
		return
	}
	badRequest(w, "Invalid request body: "+err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into dst. An empty body is an error.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
