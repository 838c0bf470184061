package supabase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// User is a GoTrue user record.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	CreatedAt        *time.Time     `json:"created_at,omitempty"`
	LastSignInAt     *time.Time     `json:"last_sign_in_at,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
}

// MetadataString returns a string field from the user metadata, or "".
func (u User) MetadataString(key string) string {
	if s, ok := u.UserMetadata[key].(string); ok {
		return s
	}
	return ""
}

// Session is an issued token pair plus the user it belongs to.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// SignUpResponse is a created user. Session is nil when the project
// requires email confirmation before the first sign-in.
type SignUpResponse struct {
	User    User
	Session *Session
}

// SignUp registers a new user. metadata is stored as user_metadata.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResponse, error) {
	req := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		req["data"] = metadata
	}
	body, err := c.do(ctx, http.MethodPost, c.authURL+"/signup", "", req, nil)
	if err != nil {
		return nil, err
	}

	// With auto-confirm the API answers with a session; otherwise with the
	// bare user object.
	if gjson.GetBytes(body, "access_token").String() != "" {
		var s Session
		if err := decode(body, &s); err != nil {
			return nil, err
		}
		return &SignUpResponse{User: s.User, Session: &s}, nil
	}
	var u User
	if err := decode(body, &u); err != nil {
		return nil, err
	}
	return &SignUpResponse{User: u}, nil
}

// SignInWithPassword exchanges email and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return c.token(ctx, "password", map[string]string{"email": email, "password": password})
}

// RefreshToken exchanges a refresh token for a new session.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	return c.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

func (c *Client) token(ctx context.Context, grant string, req map[string]string) (*Session, error) {
	body, err := c.do(ctx, http.MethodPost, c.authURL+"/token?grant_type="+grant, "", req, nil)
	if err != nil {
		return nil, err
	}
	var s Session
	if err := decode(body, &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("supabase: token response without access_token")
	}
	return &s, nil
}

// GetUser returns the user owning accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	body, err := c.do(ctx, http.MethodGet, c.authURL+"/user", accessToken, nil, nil)
	if err != nil {
		return nil, err
	}
	var u User
	if err := decode(body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, http.MethodPost, c.authURL+"/logout", accessToken, nil, nil)
	return err
}

// Recover sends a password-reset email.
func (c *Client) Recover(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, c.authURL+"/recover", "", map[string]string{"email": email}, nil)
	return err
}
