package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/handler"
	"github.com/pkordes/globaltrip/backend/internal/middleware"
)

func TestGetSession_ReportsState(t *testing.T) {
	auth := &mockAuth{
		state: domain.Authenticated(domain.AuthUser{ID: "user-1", Email: "ann@example.com", EmailVerified: true}),
		valid: true,
	}
	h := newHTTPHandler(handler.Deps{Auth: auth}, handler.RouterConfig{})

	rec := serve(h, http.MethodGet, "/auth/session", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body handler.SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, domain.AuthAuthenticated, body.State)
	require.NotNil(t, body.User)
	assert.Equal(t, "user-1", body.User.ID)
	assert.True(t, body.SessionValid)
}

func TestSignIn_Success(t *testing.T) {
	auth := &mockAuth{state: domain.Unauthenticated()}
	auth.signIn = func(_ context.Context, email, password string) error {
		assert.Equal(t, "ann@example.com", email)
		assert.Equal(t, "secret1", password)
		auth.state = domain.Authenticated(domain.AuthUser{ID: "user-1", Email: email})
		return nil
	}
	h := newHTTPHandler(handler.Deps{Auth: auth}, handler.RouterConfig{})

	rec := serve(h, http.MethodPost, "/auth/sign-in", jsonBody(t, handler.Credentials{Email: "ann@example.com", Password: "secret1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	var body handler.SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, domain.AuthAuthenticated, body.State)
}

func TestSignIn_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid credentials", domain.NewAuthError(domain.AuthInvalidCredentials), http.StatusUnauthorized, "invalid_credentials"},
		{"network", &domain.AuthError{Kind: domain.AuthNetworkError, Err: fmt.Errorf("dial tcp")}, http.StatusServiceUnavailable, "network_error"},
		{"server", &domain.AuthError{Kind: domain.AuthServerError, Message: "Project paused"}, http.StatusInternalServerError, "server_error"},
		{"busy", domain.ErrBusy, http.StatusConflict, "busy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{
				state:  domain.Unauthenticated(),
				signIn: func(context.Context, string, string) error { return tc.err },
			}
			h := newHTTPHandler(handler.Deps{Auth: auth}, handler.RouterConfig{})

			rec := serve(h, http.MethodPost, "/auth/sign-in", jsonBody(t, handler.Credentials{Email: "a@b.co", Password: "x"}))

			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Code)
		})
	}
}

func TestSignIn_InvalidCredentialsMessage(t *testing.T) {
	auth := &mockAuth{
		state:  domain.Unauthenticated(),
		signIn: func(context.Context, string, string) error { return domain.NewAuthError(domain.AuthInvalidCredentials) },
	}
	h := newHTTPHandler(handler.Deps{Auth: auth}, handler.RouterConfig{})

	rec := serve(h, http.MethodPost, "/auth/sign-in", jsonBody(t, handler.Credentials{}))

	assert.Equal(t, "Invalid email or password", decodeError(t, rec).Message)
}

func TestSignUp_StatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"created", nil, http.StatusCreated},
		{"email taken", domain.NewAuthError(domain.AuthEmailAlreadyExists), http.StatusConflict},
		{"weak password", domain.NewAuthError(domain.AuthWeakPassword), http.StatusUnprocessableEntity},
		{"short name", fmt.Errorf("%w: Name must be at least 2 characters", domain.ErrValidation), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{
				state:  domain.Unauthenticated(),
				signUp: func(context.Context, string, string, string) error { return tc.err },
			}
			h := newHTTPHandler(handler.Deps{Auth: auth}, handler.RouterConfig{})

			rec := serve(h, http.MethodPost, "/auth/sign-up", jsonBody(t, handler.SignUpRequest{Email: "ann@example.com", Password: "secret1", Name: "A"}))

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestSignOut_Returns204(t *testing.T) {
	called := false
	auth := &mockAuth{signOut: func(context.Context) error {
		called = true
		return nil
	}}
	h := newHTTPHandler(handler.Deps{Auth: auth}, handler.RouterConfig{})

	rec := serve(h, http.MethodPost, "/auth/sign-out", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, called)
}

func TestResetPassword(t *testing.T) {
	auth := &mockAuth{resetPassword: func(_ context.Context, email string) error {
		if email == "" {
			return fmt.Errorf("%w: Please enter your email address", domain.ErrValidation)
		}
		return nil
	}}
	h := newHTTPHandler(handler.Deps{Auth: auth}, handler.RouterConfig{})

	rec := serve(h, http.MethodPost, "/auth/reset-password", jsonBody(t, handler.ResetPasswordRequest{Email: "ann@example.com"}))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = serve(h, http.MethodPost, "/auth/reset-password", jsonBody(t, handler.ResetPasswordRequest{}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please enter your email address", decodeError(t, rec).Message)
}

func TestRefreshSession_Expired(t *testing.T) {
	auth := &mockAuth{refreshSession: func(context.Context) error {
		return domain.NewAuthError(domain.AuthSessionExpired)
	}}
	h := newHTTPHandler(handler.Deps{Auth: auth}, handler.RouterConfig{})

	rec := serve(h, http.MethodPost, "/auth/refresh", nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Your session has expired. Please sign in again", decodeError(t, rec).Message)
}

func TestAuthRoutes_RateLimited(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	limiter := middleware.NewRateLimiter(1, 2, func() time.Time { return now })
	auth := &mockAuth{
		state:  domain.Unauthenticated(),
		signIn: func(context.Context, string, string) error { return domain.NewAuthError(domain.AuthInvalidCredentials) },
	}
	h := newHTTPHandler(handler.Deps{Auth: auth}, handler.RouterConfig{AuthLimiter: limiter})

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", jsonBody(t, handler.Credentials{}))
		req.RemoteAddr = "198.51.100.4:40000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, post())
	assert.Equal(t, http.StatusUnauthorized, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	rec := serve(h, http.MethodGet, "/auth/session", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "session reads are not limited")
}
