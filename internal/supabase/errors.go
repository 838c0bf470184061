package supabase

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Error is a non-2xx response from the provider.
// Code is the machine-readable error code when the API sends one
// ("invalid_credentials", "23505", ...); Message is the human text.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.StatusCode, e.Message)
}

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("supabase: network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// parseError extracts code and message from the several error shapes the
// auth and REST APIs use:
//
//	{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}
//	{"error":"invalid_grant","error_description":"Invalid Refresh Token"}
//	{"code":"23505","message":"duplicate key value violates unique constraint"}
func parseError(body []byte, status int) *Error {
	e := &Error{StatusCode: status}
	if gjson.ValidBytes(body) {
		e.Code = firstString(body, "error_code", "code", "error")
		e.Message = firstString(body, "msg", "message", "error_description", "error")
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// firstString returns the first of paths that holds a non-empty string.
// Numeric values are skipped; GoTrue uses "code" for the HTTP status.
func firstString(body []byte, paths ...string) string {
	for _, p := range paths {
		r := gjson.GetBytes(body, p)
		if r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}
