package gateway_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/gateway"
	"github.com/pkordes/globaltrip/backend/internal/supabase"
)

func TestClassify_ByCode(t *testing.T) {
	cases := map[string]domain.AuthErrorKind{
		"invalid_credentials":     domain.AuthInvalidCredentials,
		"email_not_confirmed":     domain.AuthEmailNotVerified,
		"user_already_exists":     domain.AuthEmailAlreadyExists,
		"email_exists":            domain.AuthEmailAlreadyExists,
		"weak_password":           domain.AuthWeakPassword,
		"user_not_found":          domain.AuthUserNotFound,
		"refresh_token_not_found": domain.AuthSessionExpired,
		"session_not_found":       domain.AuthSessionExpired,
	}
	for code, want := range cases {
		t.Run(code, func(t *testing.T) {
			// The message deliberately disagrees with the code: codes win.
			err := &supabase.Error{StatusCode: 400, Code: code, Message: "network is fine"}

			assert.Equal(t, want, gateway.Classify(err).Kind)
		})
	}
}

func TestClassify_ByPhrase(t *testing.T) {
	cases := []struct {
		msg  string
		want domain.AuthErrorKind
	}{
		{"Invalid login credentials", domain.AuthInvalidCredentials},
		{"User already registered", domain.AuthEmailAlreadyExists},
		{"A user with this email address has already been registered", domain.AuthEmailAlreadyExists},
		{"Email not confirmed", domain.AuthEmailNotVerified},
		{"Your email address needs to be confirmed", domain.AuthEmailNotVerified},
		{"Password should be at least 6 characters", domain.AuthWeakPassword},
		{"password is too weak", domain.AuthWeakPassword},
		{"Invalid Refresh Token: Refresh Token Not Found", domain.AuthSessionExpired},
		{"connection reset by peer", domain.AuthNetworkError},
		{"Request TIMEOUT", domain.AuthNetworkError},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			err := &supabase.Error{StatusCode: 400, Code: "invalid_grant", Message: tc.msg}

			assert.Equal(t, tc.want, gateway.Classify(err).Kind)
		})
	}
}

func TestClassify_FirstPhraseWins(t *testing.T) {
	// Matches both the credentials and the network rules.
	err := errors.New("Invalid login credentials (network)")

	assert.Equal(t, domain.AuthInvalidCredentials, gateway.Classify(err).Kind)
}

func TestClassify_ConfigurationAndQuotaMessages(t *testing.T) {
	cases := map[string]string{
		"Invalid API key":           "Configuration error: Invalid API key or unauthorized access",
		"401 Unauthorized":          "Configuration error: Invalid API key or unauthorized access",
		"Project paused by owner":   "Supabase project is paused",
		"Email rate limit exceeded": "Too many requests. Please try again later.",
	}
	for msg, want := range cases {
		t.Run(msg, func(t *testing.T) {
			ae := gateway.Classify(errors.New(msg))

			assert.Equal(t, domain.AuthUnknown, ae.Kind)
			assert.Equal(t, want, ae.UserMessage())
		})
	}
}

func TestClassify_NetworkErrorType(t *testing.T) {
	err := &supabase.NetworkError{Op: "POST /auth/v1/token", Err: errors.New("dial tcp: refused")}

	assert.Equal(t, domain.AuthNetworkError, gateway.Classify(err).Kind)
	assert.Equal(t, domain.AuthNetworkError, gateway.Classify(context.DeadlineExceeded).Kind)
}

func TestClassify_ServerErrorFor5xx(t *testing.T) {
	ae := gateway.Classify(&supabase.Error{StatusCode: 502, Message: "Bad Gateway"})

	assert.Equal(t, domain.AuthServerError, ae.Kind)
	assert.Equal(t, "Bad Gateway", ae.UserMessage())
}

func TestClassify_UnknownKeepsOriginalMessage(t *testing.T) {
	ae := gateway.Classify(errors.New("something odd happened"))

	assert.Equal(t, domain.AuthUnknown, ae.Kind)
	assert.Equal(t, "something odd happened", ae.UserMessage())
}

func TestClassify_PassesThroughAuthError(t *testing.T) {
	orig := domain.NewAuthError(domain.AuthWeakPassword)

	got := gateway.Classify(fmt.Errorf("wrapped: %w", orig))

	assert.Same(t, orig, got)
	assert.Nil(t, gateway.Classify(nil))
}
