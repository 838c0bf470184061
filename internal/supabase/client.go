// Package supabase is a small client for a hosted Supabase project: the
// GoTrue auth API, the PostgREST data API and the realtime websocket.
//
// Only the calls the trip planner needs are implemented. Every request is
// bounded by Config.Timeout, and idempotent reads are retried once.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds every provider call when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Config describes a Supabase project.
type Config struct {
	// URL is the project URL, e.g. https://abcd.supabase.co.
	URL string

	// AnonKey is the project's anonymous (public) API key.
	AnonKey string

	// Timeout bounds each HTTP call. Defaults to DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the default client (RetryTransport over
	// http.DefaultTransport). Its Timeout is left untouched.
	HTTPClient *http.Client
}

// Client talks to one Supabase project.
type Client struct {
	baseURL string
	authURL string
	restURL string
	anonKey string
	http    *http.Client
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase: project URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("supabase: anon key is required")
	}
	base := strings.TrimRight(cfg.URL, "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("supabase: invalid project URL %q", cfg.URL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: NewRetryTransport(http.DefaultTransport),
		}
	}

	return &Client{
		baseURL: base,
		authURL: base + "/auth/v1",
		restURL: base + "/rest/v1",
		anonKey: cfg.AnonKey,
		http:    httpClient,
	}, nil
}

// do sends a JSON request and returns the raw response body. A status of
// 400 or above is returned as *Error; transport failures as *NetworkError.
// token, when non-empty, replaces the anon key in the Authorization header.
func (c *Client) do(ctx context.Context, method, target, token string, body any, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("supabase: marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("supabase: build request: %w", err)
	}
	bearer := c.anonKey
	if token != "" {
		bearer = token
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + req.URL.Path, Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, parseError(respBody, resp.StatusCode)
	}
	return respBody, nil
}

func decode(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("supabase: decode response: %w", err)
	}
	return nil
}
