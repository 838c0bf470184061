package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkordes/globaltrip/backend/internal/broadcast"
	"github.com/pkordes/globaltrip/backend/internal/clock"
	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/gateway"
	"github.com/pkordes/globaltrip/backend/internal/metrics"
	"github.com/pkordes/globaltrip/backend/internal/service"
)

// User-facing messages.
const (
	MsgWelcomeBack         = "Welcome back!"
	MsgAccountVerified     = "Account created and verified!"
	MsgCheckEmail          = "Account created! Please check your email to verify your account before signing in."
	MsgSignedOut           = "Signed out successfully"
	MsgEmailRequired       = "Please enter your email address"
	MsgNameTooShort        = "Name must be at least 2 characters"
	minPasswordLength      = 6
	minNameLength          = 2
	loginRedirectDelay     = 2500 * time.Millisecond
	operationSignIn        = "sign_in"
	operationSignUp        = "sign_up"
	operationSignOut       = "sign_out"
	operationResetPassword = "reset_password"
	operationRefresh       = "refresh_session"
)

// AuthGateway is the part of *gateway.Gateway the controller drives.
type AuthGateway interface {
	SignIn(ctx context.Context, email, password string) (domain.AuthUser, error)
	SignUp(ctx context.Context, email, password, name string) (gateway.SignUpResult, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
	RefreshSession(ctx context.Context) (domain.AuthUser, error)
	IsSessionValid(ctx context.Context) bool
	ObserveAuthState(ctx context.Context) <-chan domain.AuthState
}

var _ AuthGateway = (*gateway.Gateway)(nil)

// AuthOptions configures an AuthController. Zero values are usable.
type AuthOptions struct {
	Clock        clock.Clock
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	EffectBuffer int
}

// AuthController is the session state machine behind the login and main
// screens. Sign-in, sign-up and sign-out are single flight: a second one
// started while another is pending fails with domain.ErrBusy.
type AuthController struct {
	gw      AuthGateway
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics

	state   *broadcast.Value[domain.AuthState]
	effects *effectBus
	busy    atomic.Bool
}

func NewAuthController(gw AuthGateway, opts AuthOptions) *AuthController {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &AuthController{
		gw:      gw,
		clock:   opts.Clock,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		state:   broadcast.NewValue(domain.Loading()),
		effects: newEffectBus(opts.EffectBuffer, opts.Logger),
	}
}

// Start follows the gateway's session stream until ctx is done.
func (c *AuthController) Start(ctx context.Context) {
	go func() {
		for s := range c.gw.ObserveAuthState(ctx) {
			c.state.Set(s)
		}
	}()
}

// State returns the current session state.
func (c *AuthController) State() domain.AuthState { return c.state.Get() }

// Subscribe streams the session state, current value first.
func (c *AuthController) Subscribe(ctx context.Context) <-chan domain.AuthState {
	return c.state.Subscribe(ctx)
}

// Effects streams one-shot UI effects emitted after the call.
func (c *AuthController) Effects(ctx context.Context) <-chan Effect {
	return c.effects.subscribe(ctx)
}

// Busy reports whether a sign-in, sign-up or sign-out is in flight.
func (c *AuthController) Busy() bool { return c.busy.Load() }

// SignIn authenticates with email and password. Blank fields fail with
// InvalidCredentials without contacting the provider. On failure the
// current state is left untouched.
func (c *AuthController) SignIn(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return c.fail(operationSignIn, domain.NewAuthError(domain.AuthInvalidCredentials))
	}
	if !c.busy.CompareAndSwap(false, true) {
		return domain.ErrBusy
	}
	defer c.busy.Store(false)

	u, err := c.gw.SignIn(ctx, email, password)
	if err != nil {
		return c.fail(operationSignIn, err)
	}

	c.succeed(operationSignIn)
	c.state.Set(domain.Authenticated(u))
	c.effects.emit(Effect{Kind: EffectShowSuccessMessage, Message: MsgWelcomeBack})
	c.effects.emit(Effect{Kind: EffectNavigateToMain})
	return nil
}

// SignUp registers a new account. With an active session the user is
// signed in straight away; otherwise they are told to confirm their email
// and sent back to the login screen shortly after.
func (c *AuthController) SignUp(ctx context.Context, email, password, name string) error {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if err := validateSignUp(email, password, name); err != nil {
		return c.fail(operationSignUp, err)
	}
	if !c.busy.CompareAndSwap(false, true) {
		return domain.ErrBusy
	}
	defer c.busy.Store(false)

	res, err := c.gw.SignUp(ctx, email, password, name)
	if err != nil {
		return c.fail(operationSignUp, err)
	}

	c.succeed(operationSignUp)
	if res.SessionActive {
		c.state.Set(domain.Authenticated(res.User))
		c.effects.emit(Effect{Kind: EffectShowSuccessMessage, Message: MsgAccountVerified})
		c.effects.emit(Effect{Kind: EffectNavigateToMain})
		return nil
	}

	c.effects.emit(Effect{Kind: EffectShowSuccessMessage, Message: MsgCheckEmail})
	c.clock.AfterFunc(loginRedirectDelay, func() {
		c.effects.emit(Effect{Kind: EffectNavigateToLogin})
	})
	return nil
}

func validateSignUp(email, password, name string) error {
	if len(email) <= 5 || !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return domain.NewAuthError(domain.AuthInvalidCredentials)
	}
	if len(password) < minPasswordLength {
		return domain.NewAuthError(domain.AuthWeakPassword)
	}
	if name != "" && len([]rune(name)) < minNameLength {
		return fmt.Errorf("%w: %s", domain.ErrValidation, MsgNameTooShort)
	}
	return nil
}

// SignOut ends the session locally and at the provider.
func (c *AuthController) SignOut(ctx context.Context) error {
	if !c.busy.CompareAndSwap(false, true) {
		return domain.ErrBusy
	}
	defer c.busy.Store(false)

	if err := c.gw.SignOut(ctx); err != nil {
		return c.fail(operationSignOut, err)
	}

	c.succeed(operationSignOut)
	c.state.Set(domain.Unauthenticated())
	c.effects.emit(Effect{Kind: EffectShowSuccessMessage, Message: MsgSignedOut})
	c.effects.emit(Effect{Kind: EffectNavigateToLogin})
	return nil
}

// ResetPassword requests a reset email. State is not changed.
func (c *AuthController) ResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return c.fail(operationResetPassword, fmt.Errorf("%w: %s", domain.ErrValidation, MsgEmailRequired))
	}
	if err := c.gw.ResetPassword(ctx, email); err != nil {
		return c.fail(operationResetPassword, err)
	}

	c.succeed(operationResetPassword)
	c.effects.emit(Effect{Kind: EffectShowPasswordResetConfirmation, Email: email})
	return nil
}

// RefreshSession renews the session. Only an explicit SessionExpired moves
// the state to Unauthenticated; transient failures leave it as is.
func (c *AuthController) RefreshSession(ctx context.Context) error {
	u, err := c.gw.RefreshSession(ctx)
	if err != nil {
		c.metrics.AuthOperation(operationRefresh, outcome(err))
		if errors.Is(err, domain.NewAuthError(domain.AuthSessionExpired)) {
			c.state.Set(domain.Unauthenticated())
		}
		c.logger.Warn("session refresh failed", "error", err)
		return err
	}

	c.succeed(operationRefresh)
	c.state.Set(domain.Authenticated(u))
	return nil
}

// IsSessionValid delegates to the gateway.
func (c *AuthController) IsSessionValid(ctx context.Context) bool {
	return c.gw.IsSessionValid(ctx)
}

func (c *AuthController) succeed(op string) {
	c.metrics.AuthOperation(op, "success")
}

// fail records err, surfaces it as an error effect and returns it.
func (c *AuthController) fail(op string, err error) error {
	c.metrics.AuthOperation(op, outcome(err))
	c.logger.Info("auth operation failed", "operation", op, "error", err)
	c.effects.emit(Effect{Kind: EffectShowErrorMessage, Message: ErrorMessage(err)})
	return err
}

func outcome(err error) string {
	var ae *domain.AuthError
	if errors.As(err, &ae) {
		return string(ae.Kind)
	}
	if errors.Is(err, domain.ErrValidation) {
		return "validation"
	}
	return "error"
}

// ErrorMessage turns an operation error into the sentence shown to users.
func ErrorMessage(err error) string {
	var ae *domain.AuthError
	switch {
	case errors.As(err, &ae):
		return ae.UserMessage()
	case errors.Is(err, domain.ErrValidation):
		return service.ValidationMessage(err)
	default:
		return cause(err)
	}
}
