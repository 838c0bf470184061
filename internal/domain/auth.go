package domain

import (
	"fmt"
	"time"
)

// AuthUser is the signed-in identity as reported by the identity provider.
// A provisional user (EmailVerified false, id prefixed "unverified_") is
// synthesised locally when the provider only objects to an unconfirmed email.
type AuthUser struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name,omitempty"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	LastSignInAt  *time.Time `json:"last_sign_in_at,omitempty"`
	EmailVerified bool       `json:"email_verified"`
}

// AuthStatus enumerates the session states.
type AuthStatus string

const (
	AuthLoading         AuthStatus = "loading"
	AuthUnauthenticated AuthStatus = "unauthenticated"
	AuthAuthenticated   AuthStatus = "authenticated"
)

// AuthState is exactly one of Loading, Unauthenticated or Authenticated(User).
// User is non-nil only when Status is AuthAuthenticated.
type AuthState struct {
	Status AuthStatus `json:"status"`
	User   *AuthUser  `json:"user,omitempty"`
}

// Loading returns the initial state.
func Loading() AuthState { return AuthState{Status: AuthLoading} }

// Unauthenticated returns the signed-out state.
func Unauthenticated() AuthState { return AuthState{Status: AuthUnauthenticated} }

// Authenticated returns the signed-in state for u.
func Authenticated(u AuthUser) AuthState {
	return AuthState{Status: AuthAuthenticated, User: &u}
}

// IsAuthenticated reports whether a user is signed in.
func (s AuthState) IsAuthenticated() bool {
	return s.Status == AuthAuthenticated && s.User != nil
}

// AuthErrorKind is the closed taxonomy of authentication failures.
type AuthErrorKind string

const (
	AuthNetworkError       AuthErrorKind = "network_error"
	AuthInvalidCredentials AuthErrorKind = "invalid_credentials"
	AuthEmailAlreadyExists AuthErrorKind = "email_already_exists"
	AuthUserNotFound       AuthErrorKind = "user_not_found"
	AuthWeakPassword       AuthErrorKind = "weak_password"
	AuthEmailNotVerified   AuthErrorKind = "email_not_verified"
	AuthSessionExpired     AuthErrorKind = "session_expired"
	AuthOAuthError         AuthErrorKind = "oauth_error"
	AuthServerError        AuthErrorKind = "server_error"
	AuthUnknown            AuthErrorKind = "unknown"
)

// AuthError is a classified authentication failure.
// Provider is set only for AuthOAuthError. Message carries the detail for
// OAuthError, ServerError and Unknown; it is ignored by the other kinds.
type AuthError struct {
	Kind     AuthErrorKind
	Provider string
	Message  string
	Err      error
}

// NewAuthError builds an AuthError of the given kind with no detail message.
func NewAuthError(kind AuthErrorKind) *AuthError {
	return &AuthError{Kind: kind}
}

// Error implements error.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %s: %v", e.Kind, e.UserMessage(), e.Err)
	}
	return fmt.Sprintf("auth %s: %s", e.Kind, e.UserMessage())
}

// Unwrap exposes the underlying provider or transport error.
func (e *AuthError) Unwrap() error { return e.Err }

// Is matches any *AuthError of the same kind, so callers can write
// errors.Is(err, domain.NewAuthError(domain.AuthSessionExpired)).
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

// UserMessage returns the fixed sentence shown to the user for this kind.
func (e *AuthError) UserMessage() string {
	switch e.Kind {
	case AuthNetworkError:
		return "Please check your internet connection and try again"
	case AuthInvalidCredentials:
		return "Invalid email or password"
	case AuthEmailAlreadyExists:
		return "An account with this email already exists"
	case AuthUserNotFound:
		return "No account found with this email"
	case AuthWeakPassword:
		return "Password must be at least 6 characters long"
	case AuthEmailNotVerified:
		return "Please verify your email before signing in"
	case AuthSessionExpired:
		return "Your session has expired. Please sign in again"
	case AuthOAuthError:
		return fmt.Sprintf("Failed to sign in with %s: %s", e.Provider, e.Message)
	case AuthServerError:
		return e.Message
	default:
		if e.Message != "" {
			return e.Message
		}
		return "An unexpected error occurred"
	}
}
