package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Status is the session state machine position.
//
//	StatusLoading -> StatusLoggedIn | StatusLoggedOut
//	StatusLoggedIn -> StatusLogoutTriggered -> StatusLoggedOut
//	StatusLoggedOut -> StatusLoggedIn
type Status string

const (
	StatusLoading         Status = "loading"
	StatusLoggedIn        Status = "logged_in"
	StatusLogoutTriggered Status = "logout_triggered"
	StatusLoggedOut       Status = "logged_out"
)

const defaultRestoreTimeout = 5 * time.Second

// Controller is the single authority on "is someone logged in, and who".
// All transitions are serialized; a caller never observes a half-committed
// session. Instances are independent, so tests can run isolated controllers.
type Controller struct {
	provider IdentityProvider
	api      *APIClient
	store    SessionStore
	logger   *slog.Logger

	restoreTimeout time.Duration

	mu          sync.Mutex
	status      Status
	currentUser *UserProfile
	token       string
	signingIn   bool
	attempt     uint64
}

// ControllerConfig wires the controller's collaborators.
type ControllerConfig struct {
	Provider IdentityProvider
	API      *APIClient
	Store    SessionStore
	Logger   *slog.Logger

	// RestoreTimeout bounds RestoreSession; zero means the default.
	RestoreTimeout time.Duration
}

func NewController(cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RestoreTimeout
	if timeout <= 0 {
		timeout = defaultRestoreTimeout
	}
	c := &Controller{
		provider:       cfg.Provider,
		api:            cfg.API,
		store:          cfg.Store,
		logger:         logger,
		restoreTimeout: timeout,
		status:         StatusLoading,
	}
	if c.api != nil {
		c.api.SetTokenRefresher(c.refreshBearer)
	}
	return c
}

// Status returns the current state machine position.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// CurrentUser returns the cached profile, or nil when not logged in.
func (c *Controller) CurrentUser() *UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentUser == nil {
		return nil
	}
	copied := *c.currentUser
	return &copied
}

// BearerToken returns the cached session token, empty when not logged in.
func (c *Controller) BearerToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// SignInWithCredentials verifies the password with the identity provider,
// exchanges the principal for a backend session, and transitions to
// logged-in. On any failure the state is exactly what it was before.
func (c *Controller) SignInWithCredentials(ctx context.Context, email, password string) (UserProfile, error) {
	attempt, err := c.beginSignIn()
	if err != nil {
		return UserProfile{}, err
	}
	defer c.endSignIn()

	principal, err := c.provider.VerifyPassword(ctx, email, password)
	if err != nil {
		return UserProfile{}, mapCredentialError(err)
	}

	return c.completeSignIn(ctx, attempt, principal)
}

// SignInFederated runs the provider's federated flow and exchanges the
// resulting principal. An identity the backend does not know yields the
// NOT_SIGNED_UP error and no transition.
func (c *Controller) SignInFederated(ctx context.Context) (UserProfile, error) {
	attempt, err := c.beginSignIn()
	if err != nil {
		return UserProfile{}, err
	}
	defer c.endSignIn()

	principal, err := c.provider.SignInFederated(ctx)
	if err != nil {
		return UserProfile{}, newAuthError(CodeNetwork, "federated sign-in failed", err)
	}

	return c.completeSignIn(ctx, attempt, principal)
}

func (c *Controller) beginSignIn() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signingIn {
		return 0, ErrSignInInFlight
	}
	c.signingIn = true
	c.attempt++
	return c.attempt, nil
}

func (c *Controller) endSignIn() {
	c.mu.Lock()
	c.signingIn = false
	c.mu.Unlock()
}

// completeSignIn exchanges the principal's token for a profile and commits
// the session, unless a newer attempt superseded this one in the meantime.
func (c *Controller) completeSignIn(ctx context.Context, attempt uint64, principal Principal) (UserProfile, error) {
	profile, err := c.api.VerifyToken(ctx, principal.Token)
	if err != nil {
		return UserProfile{}, mapExchangeError(err)
	}

	c.mu.Lock()
	if c.attempt != attempt {
		c.mu.Unlock()
		return UserProfile{}, newAuthError(CodeBackend, "sign-in attempt superseded", nil)
	}
	c.status = StatusLoggedIn
	c.currentUser = &profile
	c.token = principal.Token
	c.mu.Unlock()

	c.api.SetToken(principal.Token)
	c.persist(SessionRecord{Status: StatusLoggedIn, CurrentUser: &profile, Token: principal.Token})
	return profile, nil
}

// RefreshProfile applies a server-acknowledged profile update to the cached
// user. The state stays logged-in; only the payload changes.
func (c *Controller) RefreshProfile(ctx context.Context, name, email string) (UserProfile, error) {
	c.mu.Lock()
	if c.status != StatusLoggedIn || c.currentUser == nil {
		c.mu.Unlock()
		return UserProfile{}, newAuthError(CodeBackend, "not logged in", nil)
	}
	userID := c.currentUser.ID
	token := c.token
	c.mu.Unlock()

	updated, err := c.api.UpdateProfile(ctx, userID, name, email)
	if err != nil {
		return UserProfile{}, mapExchangeError(err)
	}

	c.mu.Lock()
	if c.status == StatusLoggedIn && c.currentUser != nil && c.currentUser.ID == updated.ID {
		c.currentUser = &updated
	}
	c.mu.Unlock()

	c.persist(SessionRecord{Status: StatusLoggedIn, CurrentUser: &updated, Token: token})
	return updated, nil
}

// Logout always lands in logged-out. Backend, provider and store failures
// are logged and ignored; a broken disk must not keep a session alive.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	if c.status != StatusLoggedIn {
		c.mu.Unlock()
		return
	}
	c.status = StatusLogoutTriggered
	c.attempt++
	c.mu.Unlock()

	if err := c.api.Logout(ctx); err != nil {
		c.logger.Warn("backend logout failed; clearing local session anyway", "error", err)
	}
	if err := c.provider.SignOut(ctx); err != nil {
		c.logger.Warn("provider sign-out failed; clearing local session anyway", "error", err)
	}
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("session record clear failed; clearing in-memory state anyway", "error", err)
	}

	c.mu.Lock()
	c.status = StatusLoggedOut
	c.currentUser = nil
	c.token = ""
	c.mu.Unlock()
	c.api.SetToken("")
}

// RestoreSession resolves the initial loading state. It reads the persisted
// record, revalidates the token with the backend, and settles to logged-in
// or logged-out within the configured timeout. Failures are silent; the
// caller just sees the logged-out experience.
func (c *Controller) RestoreSession(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.restoreTimeout)
	defer cancel()

	record, err := c.store.Load()
	if err != nil || record == nil || record.Status != StatusLoggedIn || record.Token == "" {
		if err != nil {
			c.logger.Warn("session record unreadable; starting logged out", "error", err)
		}
		c.settleLoggedOut()
		return
	}

	profile, err := c.api.VerifyToken(ctx, record.Token)
	if err != nil {
		c.logger.Info("persisted session no longer valid; starting logged out", "error", err)
		c.settleLoggedOut()
		return
	}

	c.mu.Lock()
	c.status = StatusLoggedIn
	c.currentUser = &profile
	c.token = record.Token
	c.mu.Unlock()
	c.api.SetToken(record.Token)
}

func (c *Controller) settleLoggedOut() {
	c.mu.Lock()
	c.status = StatusLoggedOut
	c.currentUser = nil
	c.token = ""
	c.mu.Unlock()
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("stale session record clear failed", "error", err)
	}
}

// refreshBearer is the API client's 401 hook: ask the provider for a fresh
// token and adopt it as the session token.
func (c *Controller) refreshBearer(ctx context.Context) (string, error) {
	if c.provider == nil {
		return "", errors.New("no identity provider")
	}
	fresh, err := c.provider.BearerToken(ctx)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	if c.status == StatusLoggedIn {
		c.token = fresh
	}
	c.mu.Unlock()
	return fresh, nil
}

func (c *Controller) persist(record SessionRecord) {
	if err := c.store.Save(record); err != nil {
		c.logger.Warn("session record write failed", "error", err)
	}
}

// mapCredentialError classifies a failed password verification. Only a
// backend rejection means the credentials were wrong; an unreachable backend
// is a network failure, not a bad password.
func mapCredentialError(err error) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return newAuthError(CodeNetwork, "could not reach the sign-in service", err)
	}
	switch {
	case apiErr.Code == "ACCOUNT_LOCKED":
		return newAuthError(CodeAccountLocked, "account temporarily locked", err)
	case apiErr.Code == "RATE_LIMITED":
		return newAuthError(CodeRateLimited, "too many attempts", err)
	case apiErr.StatusCode == http.StatusUnauthorized:
		return newAuthError(CodeInvalidCredentials, "email or password is incorrect", err)
	default:
		return newAuthError(CodeBackend, apiErr.Message, err)
	}
}

func mapExchangeError(err error) *AuthError {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return newAuthError(CodeNetwork, "backend unreachable", err)
	}
	switch {
	case apiErr.Code == "NOT_SIGNED_UP":
		return newAuthError(CodeNotSignedUp, "this identity is not signed up", err)
	case apiErr.Code == "ACCOUNT_LOCKED":
		return newAuthError(CodeAccountLocked, "account temporarily locked", err)
	case apiErr.Code == "RATE_LIMITED":
		return newAuthError(CodeRateLimited, "too many attempts", err)
	case apiErr.StatusCode == http.StatusUnauthorized:
		return newAuthError(CodeInvalidCredentials, "credential rejected", err)
	default:
		return newAuthError(CodeBackend, apiErr.Message, err)
	}
}
