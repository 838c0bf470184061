package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/globaltrip/backend/internal/domain"
)

func TestAuthError_UserMessage(t *testing.T) {
	cases := []struct {
		err  *domain.AuthError
		want string
	}{
		{domain.NewAuthError(domain.AuthNetworkError), "Please check your internet connection and try again"},
		{domain.NewAuthError(domain.AuthInvalidCredentials), "Invalid email or password"},
		{domain.NewAuthError(domain.AuthEmailAlreadyExists), "An account with this email already exists"},
		{domain.NewAuthError(domain.AuthUserNotFound), "No account found with this email"},
		{domain.NewAuthError(domain.AuthEmailNotVerified), "Please verify your email before signing in"},
		{domain.NewAuthError(domain.AuthSessionExpired), "Your session has expired. Please sign in again"},
		{&domain.AuthError{Kind: domain.AuthOAuthError, Provider: "Google", Message: "denied"}, "Failed to sign in with Google: denied"},
		{&domain.AuthError{Kind: domain.AuthServerError, Message: "boom"}, "boom"},
		{domain.NewAuthError(domain.AuthUnknown), "An unexpected error occurred"},
		{&domain.AuthError{Kind: domain.AuthUnknown, Message: "odd"}, "odd"},
	}
	for _, tc := range cases {
		t.Run(string(tc.err.Kind), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.UserMessage())
		})
	}
}

func TestAuthError_Is_MatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("gateway.SignIn: %w", &domain.AuthError{
		Kind: domain.AuthSessionExpired,
		Err:  errors.New("refresh_token_not_found"),
	})

	assert.ErrorIs(t, err, domain.NewAuthError(domain.AuthSessionExpired))
	assert.NotErrorIs(t, err, domain.NewAuthError(domain.AuthNetworkError))

	var ae *domain.AuthError
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, domain.AuthSessionExpired, ae.Kind)
}

func TestAuthState_Constructors(t *testing.T) {
	assert.False(t, domain.Loading().IsAuthenticated())
	assert.False(t, domain.Unauthenticated().IsAuthenticated())

	s := domain.Authenticated(domain.AuthUser{ID: "u1"})
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "u1", s.User.ID)
}
