package middleware

import "net/http"

// NewMaxBodySizeHandler caps request bodies at limit bytes. Bodyless methods
// pass straight through. A declared Content-Length over the cap is refused
// up front; chunked bodies are cut off by http.MaxBytesReader and the
// decoding handler reports *http.MaxBytesError.
func NewMaxBodySizeHandler(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				reject(w, http.StatusRequestEntityTooLarge, "request_too_large", "Request body is too large")
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
