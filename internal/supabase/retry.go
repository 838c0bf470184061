package supabase

import (
	"io"
	"net/http"
	"time"
)

// RetryTransport retries GET and HEAD requests exactly once when the first
// attempt fails at the transport level or returns a 5xx status.
// Writes are never retried.
type RetryTransport struct {
	Base    http.RoundTripper
	Backoff time.Duration
}

// NewRetryTransport wraps base with a 200ms backoff.
func NewRetryTransport(base http.RoundTripper) *RetryTransport {
	return &RetryTransport{Base: base, Backoff: 200 * time.Millisecond}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return resp, err
	}
	if err == nil && resp.StatusCode < http.StatusInternalServerError {
		return resp, nil
	}
	if resp != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	ctx := req.Context()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(t.Backoff):
	}
	return base.RoundTrip(req)
}
