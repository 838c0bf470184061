package middleware_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/globaltrip/backend/internal/middleware"
)

// drainBody reads the whole body the way a JSON decoder would and answers
// 413 on *http.MaxBytesError, like the trip handlers do.
var drainBody = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if _, err := io.ReadAll(r.Body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
})

func TestMaxBodySizeHandler(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		size          int
		contentLength int64 // -1 simulates a chunked upload
		want          int
	}{
		{name: "under limit", method: http.MethodPost, size: 50, contentLength: 50, want: http.StatusOK},
		{name: "exactly at limit", method: http.MethodPut, size: 100, contentLength: 100, want: http.StatusOK},
		{name: "declared length over limit", method: http.MethodPost, size: 200, contentLength: 200, want: http.StatusRequestEntityTooLarge},
		{name: "chunked body over limit", method: http.MethodPost, size: 200, contentLength: -1, want: http.StatusRequestEntityTooLarge},
		{name: "GET is not capped", method: http.MethodGet, size: 200, contentLength: 200, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := middleware.NewMaxBodySizeHandler(100)(drainBody)

			req := httptest.NewRequest(tt.method, "/trips", strings.NewReader(strings.Repeat("x", tt.size)))
			req.ContentLength = tt.contentLength
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMaxBodySizeHandler_RejectionIsJSON(t *testing.T) {
	h := middleware.NewMaxBodySizeHandler(16)(drainBody)

	req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", strings.NewReader(`{"email":"ann@example.com","password":"hunter22"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "request_too_large", body["code"])
}
