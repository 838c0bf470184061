package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/supabase"
)

// codeRule maps a provider error code to a kind. message, when set,
// replaces the provider text for Unknown kinds.
type codeRule struct {
	kind    domain.AuthErrorKind
	message string
}

const tooManyRequests = "Too many requests. Please try again later."

// codeRules is consulted first. Codes are those sent by GoTrue in the
// error_code field.
var codeRules = map[string]codeRule{
	"invalid_credentials":        {kind: domain.AuthInvalidCredentials},
	"email_not_confirmed":        {kind: domain.AuthEmailNotVerified},
	"user_already_exists":        {kind: domain.AuthEmailAlreadyExists},
	"email_exists":               {kind: domain.AuthEmailAlreadyExists},
	"weak_password":              {kind: domain.AuthWeakPassword},
	"user_not_found":             {kind: domain.AuthUserNotFound},
	"session_not_found":          {kind: domain.AuthSessionExpired},
	"session_expired":            {kind: domain.AuthSessionExpired},
	"refresh_token_not_found":    {kind: domain.AuthSessionExpired},
	"refresh_token_already_used": {kind: domain.AuthSessionExpired},
	"bad_jwt":                    {kind: domain.AuthSessionExpired},
	"over_request_rate_limit":    {kind: domain.AuthUnknown, message: tooManyRequests},
	"over_email_send_rate_limit": {kind: domain.AuthUnknown, message: tooManyRequests},
}

// phraseRule matches when the lower-cased error text contains any phrase.
type phraseRule struct {
	phrases []string
	kind    domain.AuthErrorKind
	message string
}

// phraseRules is the text fallback, checked in order; the first match wins.
var phraseRules = []phraseRule{
	{phrases: []string{"invalid login credentials"}, kind: domain.AuthInvalidCredentials},
	{phrases: []string{"already registered", "already been registered"}, kind: domain.AuthEmailAlreadyExists},
	{phrases: []string{"email not confirmed", "needs to be confirmed"}, kind: domain.AuthEmailNotVerified},
	{phrases: []string{"password should be at least", "too weak"}, kind: domain.AuthWeakPassword},
	{phrases: []string{"invalid refresh token", "refresh token not found", "session expired", "jwt expired"}, kind: domain.AuthSessionExpired},
	{phrases: []string{"network", "connection", "timeout", "unreachable"}, kind: domain.AuthNetworkError},
	{phrases: []string{"invalid api key", "unauthorized", "401"}, kind: domain.AuthUnknown, message: "Configuration error: Invalid API key or unauthorized access"},
	{phrases: []string{"project paused"}, kind: domain.AuthUnknown, message: "Supabase project is paused"},
	{phrases: []string{"rate limit"}, kind: domain.AuthUnknown, message: tooManyRequests},
}

// Classify maps any error from the provider into the auth taxonomy.
// It never returns nil for a non-nil err.
func Classify(err error) *domain.AuthError {
	if err == nil {
		return nil
	}

	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	var netErr *supabase.NetworkError
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.AuthError{Kind: domain.AuthNetworkError, Err: err}
	}

	text := err.Error()
	var apiErr *supabase.Error
	if errors.As(err, &apiErr) {
		if rule, ok := codeRules[apiErr.Code]; ok {
			return newClassified(rule.kind, rule.message, apiErr.Message, err)
		}
		text = apiErr.Message
	}

	if ae := matchPhrase(text, err); ae != nil {
		return ae
	}

	if apiErr != nil && apiErr.StatusCode >= http.StatusInternalServerError {
		return &domain.AuthError{Kind: domain.AuthServerError, Message: apiErr.Message, Err: err}
	}
	if text == "" {
		text = "Unknown authentication error"
	}
	return &domain.AuthError{Kind: domain.AuthUnknown, Message: text, Err: err}
}

func matchPhrase(text string, err error) *domain.AuthError {
	lower := strings.ToLower(text)
	for _, rule := range phraseRules {
		for _, p := range rule.phrases {
			if strings.Contains(lower, p) {
				return newClassified(rule.kind, rule.message, text, err)
			}
		}
	}
	return nil
}

func newClassified(kind domain.AuthErrorKind, fixed, providerText string, err error) *domain.AuthError {
	ae := &domain.AuthError{Kind: kind, Err: err}
	if kind == domain.AuthUnknown || kind == domain.AuthServerError {
		ae.Message = fixed
		if ae.Message == "" {
			ae.Message = providerText
		}
	}
	return ae
}
