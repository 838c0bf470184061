// Package gateway adapts the hosted identity provider to the app's auth
// vocabulary. It turns provider sessions into domain.AuthUser values,
// classifies every failure into a domain.AuthError, keeps credentials in a
// tokenstore.Store and publishes the resulting session state.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pkordes/globaltrip/backend/internal/broadcast"
	"github.com/pkordes/globaltrip/backend/internal/clock"
	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/supabase"
	"github.com/pkordes/globaltrip/backend/internal/tokenstore"
)

// ProvisionalIDPrefix marks locally synthesised users.
const ProvisionalIDPrefix = "unverified_"

// Provider is the identity API the gateway drives. *supabase.Client satisfies it.
type Provider interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*supabase.SignUpResponse, error)
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (*supabase.Session, error)
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
	SignOut(ctx context.Context, accessToken string) error
	Recover(ctx context.Context, email string) error
}

// Options tunes a Gateway. The zero value is usable.
type Options struct {
	// AllowProvisional grants access to a locally synthesised, unverified
	// user when the provider accepts the credentials but reports that the
	// email is not confirmed yet.
	AllowProvisional bool

	// JWTSecret, when set, makes session validity checks verify the access
	// token signature (HS256). Otherwise only the exp claim is inspected.
	JWTSecret string

	Clock  clock.Clock
	Logger *slog.Logger
}

// SignUpResult describes a created account. SessionActive is false when
// the provider requires email confirmation before the first sign-in.
type SignUpResult struct {
	User          domain.AuthUser
	SessionActive bool
}

// Gateway is the Auth Gateway.
type Gateway struct {
	provider Provider
	tokens   tokenstore.Store
	opts     Options
	clock    clock.Clock
	logger   *slog.Logger
	state    *broadcast.Value[domain.AuthState]

	mu          sync.Mutex
	provisional *domain.AuthUser
}

// New constructs a Gateway. The published state starts as Loading until
// the first ObserveAuthState call resolves the stored session.
func New(provider Provider, tokens tokenstore.Store, opts Options) *Gateway {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Gateway{
		provider: provider,
		tokens:   tokens,
		opts:     opts,
		clock:    opts.Clock,
		logger:   opts.Logger,
		state:    broadcast.NewValue(domain.Loading()),
	}
}

// State returns the last published session state.
func (g *Gateway) State() domain.AuthState { return g.state.Get() }

// SignIn authenticates with email and password.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (domain.AuthUser, error) {
	s, err := g.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		ae := Classify(err)
		if ae.Kind == domain.AuthEmailNotVerified && g.opts.AllowProvisional {
			u := g.provisionalUser(email)
			g.setProvisional(&u)
			g.state.Set(domain.Authenticated(u))
			g.logger.Warn("granting provisional access to unverified email", "user_id", u.ID)
			return u, nil
		}
		return domain.AuthUser{}, ae
	}

	u := userFromProvider(s.User)
	g.persistSession(ctx, s, u)
	g.setProvisional(nil)
	g.state.Set(domain.Authenticated(u))
	return u, nil
}

// SignUp creates an account. name is optional and stored as profile metadata.
func (g *Gateway) SignUp(ctx context.Context, email, password, name string) (SignUpResult, error) {
	var metadata map[string]any
	if name != "" {
		metadata = map[string]any{"name": name}
	}

	resp, err := g.provider.SignUp(ctx, email, password, metadata)
	if err != nil {
		return SignUpResult{}, Classify(err)
	}

	u := userFromProvider(resp.User)
	if u.Name == "" {
		u.Name = name
	}
	if resp.Session == nil || resp.Session.AccessToken == "" {
		return SignUpResult{User: u}, nil
	}

	g.persistSession(ctx, resp.Session, u)
	g.setProvisional(nil)
	g.state.Set(domain.Authenticated(u))
	return SignUpResult{User: u, SessionActive: true}, nil
}

// SignOut revokes the provider session and clears local credentials.
// A session the provider no longer knows about is still cleared locally.
func (g *Gateway) SignOut(ctx context.Context) error {
	access, _, err := g.tokens.Get(ctx, tokenstore.KeyAccessToken)
	if err != nil {
		return &domain.AuthError{Kind: domain.AuthUnknown, Message: "Failed to read stored credentials", Err: err}
	}
	if access != "" {
		if err := g.provider.SignOut(ctx, access); err != nil {
			ae := Classify(err)
			if ae.Kind != domain.AuthSessionExpired {
				return ae
			}
		}
	}

	if err := g.tokens.ClearAll(ctx); err != nil {
		return &domain.AuthError{Kind: domain.AuthUnknown, Message: "Failed to clear stored credentials", Err: err}
	}
	g.setProvisional(nil)
	g.state.Set(domain.Unauthenticated())
	return nil
}

// ResetPassword asks the provider to email a reset link.
func (g *Gateway) ResetPassword(ctx context.Context, email string) error {
	if err := g.provider.Recover(ctx, email); err != nil {
		return Classify(err)
	}
	return nil
}

// RefreshSession exchanges the stored refresh token for a new session.
// A missing or rejected refresh token yields SessionExpired and signs the
// user out locally; transport failures keep the credentials.
func (g *Gateway) RefreshSession(ctx context.Context) (domain.AuthUser, error) {
	if u := g.getProvisional(); u != nil {
		return *u, nil
	}

	refresh, ok, err := g.tokens.Get(ctx, tokenstore.KeyRefreshToken)
	if err != nil {
		return domain.AuthUser{}, &domain.AuthError{Kind: domain.AuthUnknown, Message: "Failed to read stored credentials", Err: err}
	}
	if !ok || refresh == "" {
		g.expire(ctx)
		return domain.AuthUser{}, domain.NewAuthError(domain.AuthSessionExpired)
	}

	s, err := g.provider.RefreshToken(ctx, refresh)
	if err != nil {
		ae := Classify(err)
		if ae.Kind == domain.AuthSessionExpired || ae.Kind == domain.AuthInvalidCredentials {
			g.expire(ctx)
			return domain.AuthUser{}, &domain.AuthError{Kind: domain.AuthSessionExpired, Err: err}
		}
		return domain.AuthUser{}, ae
	}

	u := userFromProvider(s.User)
	g.persistSession(ctx, s, u)
	g.state.Set(domain.Authenticated(u))
	return u, nil
}

// CurrentUser returns the signed-in user, or nil when there is no usable
// session. A provisional user takes precedence over stored credentials.
func (g *Gateway) CurrentUser(ctx context.Context) (*domain.AuthUser, error) {
	if u := g.getProvisional(); u != nil {
		return u, nil
	}

	access, ok, err := g.tokens.Get(ctx, tokenstore.KeyAccessToken)
	if err != nil {
		return nil, &domain.AuthError{Kind: domain.AuthUnknown, Message: "Failed to read stored credentials", Err: err}
	}
	if !ok || access == "" {
		return nil, nil
	}

	if !g.tokenValid(access) {
		u, err := g.RefreshSession(ctx)
		if err != nil {
			if Classify(err).Kind == domain.AuthSessionExpired {
				return nil, nil
			}
			return nil, err
		}
		return &u, nil
	}

	if u := g.cachedUser(ctx); u != nil {
		return u, nil
	}
	pu, err := g.provider.GetUser(ctx, access)
	if err != nil {
		ae := Classify(err)
		if ae.Kind == domain.AuthSessionExpired {
			g.expire(ctx)
			return nil, nil
		}
		return nil, ae
	}
	u := userFromProvider(*pu)
	g.saveUser(ctx, u)
	return &u, nil
}

// IsSessionValid reports whether a usable session exists without calling
// the provider.
func (g *Gateway) IsSessionValid(ctx context.Context) bool {
	if g.getProvisional() != nil {
		return true
	}
	access, ok, err := g.tokens.Get(ctx, tokenstore.KeyAccessToken)
	if err != nil || !ok {
		return false
	}
	return g.tokenValid(access)
}

// ObserveAuthState emits Loading, then the resolved session state, then
// every later change, until ctx is done.
func (g *Gateway) ObserveAuthState(ctx context.Context) <-chan domain.AuthState {
	out := make(chan domain.AuthState, 1)
	go func() {
		defer close(out)
		send := func(s domain.AuthState) bool {
			select {
			case out <- s:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(domain.Loading()) {
			return
		}
		g.resolve(ctx)

		for s := range g.state.Subscribe(ctx) {
			if s.Status == domain.AuthLoading {
				continue
			}
			if !send(s) {
				return
			}
		}
	}()
	return out
}

// resolve replaces a Loading state with the stored session's outcome.
// A sign-in that lands first wins.
func (g *Gateway) resolve(ctx context.Context) {
	resolved := domain.Unauthenticated()
	u, err := g.CurrentUser(ctx)
	switch {
	case err != nil:
		g.logger.Warn("resolving stored session failed", "error", err)
	case u != nil:
		resolved = domain.Authenticated(*u)
	}
	g.state.Update(func(cur domain.AuthState) domain.AuthState {
		if cur.Status == domain.AuthLoading {
			return resolved
		}
		return cur
	})
}

func (g *Gateway) tokenValid(token string) bool {
	var claims jwt.RegisteredClaims
	if g.opts.JWTSecret != "" {
		_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(g.opts.JWTSecret), nil
		}, jwt.WithTimeFunc(g.clock.Now), jwt.WithExpirationRequired())
		return err == nil
	}

	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return g.clock.Now().Before(claims.ExpiresAt.Time)
}

func (g *Gateway) expire(ctx context.Context) {
	if err := g.tokens.ClearAll(ctx); err != nil {
		g.logger.Warn("clearing expired credentials failed", "error", err)
	}
	g.state.Set(domain.Unauthenticated())
}

func (g *Gateway) persistSession(ctx context.Context, s *supabase.Session, u domain.AuthUser) {
	if err := g.tokens.Save(ctx, tokenstore.KeyAccessToken, s.AccessToken); err != nil {
		g.logger.Warn("saving access token failed", "error", err)
	}
	if s.RefreshToken != "" {
		if err := g.tokens.Save(ctx, tokenstore.KeyRefreshToken, s.RefreshToken); err != nil {
			g.logger.Warn("saving refresh token failed", "error", err)
		}
	}
	g.saveUser(ctx, u)
}

func (g *Gateway) saveUser(ctx context.Context, u domain.AuthUser) {
	raw, err := json.Marshal(u)
	if err != nil {
		g.logger.Warn("encoding user session failed", "error", err)
		return
	}
	if err := g.tokens.Save(ctx, tokenstore.KeyUserSession, string(raw)); err != nil {
		g.logger.Warn("saving user session failed", "error", err)
	}
}

func (g *Gateway) cachedUser(ctx context.Context) *domain.AuthUser {
	raw, ok, err := g.tokens.Get(ctx, tokenstore.KeyUserSession)
	if err != nil || !ok {
		return nil
	}
	var u domain.AuthUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == "" {
		return nil
	}
	return &u
}

func (g *Gateway) provisionalUser(email string) domain.AuthUser {
	normalized := strings.ToLower(strings.TrimSpace(email))
	now := g.clock.Now()
	return domain.AuthUser{
		ID:            ProvisionalIDPrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+normalized)).String(),
		Email:         email,
		LastSignInAt:  &now,
		EmailVerified: false,
	}
}

func (g *Gateway) setProvisional(u *domain.AuthUser) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.provisional = u
}

func (g *Gateway) getProvisional() *domain.AuthUser {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.provisional == nil {
		return nil
	}
	u := *g.provisional
	return &u
}

func userFromProvider(u supabase.User) domain.AuthUser {
	name := u.MetadataString("name")
	if name == "" {
		name = u.MetadataString("full_name")
	}
	return domain.AuthUser{
		ID:            u.ID,
		Email:         u.Email,
		Name:          name,
		AvatarURL:     u.MetadataString("avatar_url"),
		CreatedAt:     u.CreatedAt,
		LastSignInAt:  u.LastSignInAt,
		EmailVerified: u.EmailConfirmedAt != nil,
	}
}
