// Package middleware provides the HTTP middleware wrapped around the planner
// daemon's router.
package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// corsMaxAge is how long, in seconds, browsers may cache a preflight answer.
const corsMaxAge = 600

// NewCORSHandler lets the screens served from origins call the daemon.
// Origins are scheme + host with no trailing slash; a single "*" allows any
// origin. Last-Event-ID is accepted so EventSource can resume a stream after
// a reconnect, and X-Request-Id is readable by scripts for support reports.
func NewCORSHandler(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Last-Event-ID"},
		ExposedHeaders: []string{"X-Request-Id", "Location", "Retry-After"},
		MaxAge:         corsMaxAge,
	}
	if slices.Contains(origins, "*") {
		opts.AllowOriginFunc = func(string) bool { return true }
	} else {
		opts.AllowedOrigins = origins
	}
	return cors.New(opts).Handler
}
