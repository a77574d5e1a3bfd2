package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/ports"
)

// OIDCAuthorize starts the federated sign-in round-trip: it stores the
// transient PKCE/nonce state and returns the provider authorize URL the
// browser should be sent to.
func (s *Service) OIDCAuthorize(ctx context.Context, provider, redirectURI, loginHint string) (OIDCAuthorizeResponse, error) {
	if s.oidcVerifier == nil {
		return OIDCAuthorizeResponse{}, fmt.Errorf("%w: federated sign-in is not configured", domain.ErrInvalidInput)
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = "google"
	}
	if strings.TrimSpace(redirectURI) == "" {
		return OIDCAuthorizeResponse{}, fmt.Errorf("%w: redirect_uri is required", domain.ErrInvalidInput)
	}
	if _, err := url.ParseRequestURI(redirectURI); err != nil {
		return OIDCAuthorizeResponse{}, fmt.Errorf("%w: invalid redirect_uri", domain.ErrInvalidInput)
	}
	if !s.isAllowedOIDCRedirectURI(redirectURI) {
		return OIDCAuthorizeResponse{}, fmt.Errorf("%w: redirect_uri is not allowed", domain.ErrInvalidInput)
	}

	state := randomHex(16)
	nonce := randomHex(16)
	codeVerifier, codeChallenge := generatePKCEVerifierChallenge()
	now := s.nowFn()
	if err := s.oidcState.Put(ctx, state, ports.OIDCAuthState{
		Provider:     provider,
		RedirectURI:  redirectURI,
		Nonce:        nonce,
		LoginHint:    strings.ToLower(strings.TrimSpace(loginHint)),
		CodeVerifier: codeVerifier,
		CreatedAt:    now,
		ExpiresAt:    now.Add(10 * time.Minute),
	}, 10*time.Minute); err != nil {
		return OIDCAuthorizeResponse{}, err
	}

	authorizeURL, err := s.oidcVerifier.BuildAuthorizeURL(
		ctx,
		provider,
		redirectURI,
		state,
		nonce,
		strings.ToLower(strings.TrimSpace(loginHint)),
		codeChallenge,
	)
	if err != nil {
		return OIDCAuthorizeResponse{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return OIDCAuthorizeResponse{AuthorizeURL: authorizeURL, State: state}, nil
}

// OIDCCallback completes the federated flow: exchanges the code, resolves or
// creates the account, opens a session and hands the token back via the
// redirect fragment. An unknown identity with auto-signup disabled is
// rejected as not signed up: no session is opened and no account is created.
func (s *Service) OIDCCallback(ctx context.Context, code, state string) (OIDCCallbackResult, error) {
	if s.oidcVerifier == nil {
		return OIDCCallbackResult{}, fmt.Errorf("%w: federated sign-in is not configured", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(code) == "" || strings.TrimSpace(state) == "" {
		return OIDCCallbackResult{}, fmt.Errorf("%w: code and state are required", domain.ErrInvalidInput)
	}

	authState, err := s.oidcState.Get(ctx, state)
	if err != nil {
		return OIDCCallbackResult{}, err
	}
	if authState == nil || authState.ExpiresAt.Before(s.nowFn()) {
		return OIDCCallbackResult{}, domain.ErrUnauthorized
	}

	identity, err := s.oidcVerifier.ExchangeCode(
		ctx,
		authState.Provider,
		code,
		authState.RedirectURI,
		authState.Nonce,
		authState.CodeVerifier,
	)
	if err != nil {
		return OIDCCallbackResult{}, domain.ErrUnauthorized
	}
	if identity.ProviderSub == "" || !identity.EmailVerified {
		return OIDCCallbackResult{}, domain.ErrUnauthorized
	}

	user, err := s.resolveFederatedUser(ctx, identity, authState.LoginHint)
	if err != nil {
		return OIDCCallbackResult{}, err
	}

	res, err := s.openSession(ctx, user, sessionMeta{
		DeviceName: "federated",
		DeviceOS:   "browser",
		UserAgent:  "oidc-callback",
	}, "login successful")
	if err != nil {
		return OIDCCallbackResult{}, err
	}
	_ = s.oidcState.Delete(ctx, state)

	fragment := "token=" + url.QueryEscape(res.Token) + "&session_id=" + res.SessionID.String()
	return OIDCCallbackResult{
		RedirectURL: buildRedirectWithFragment(authState.RedirectURI, fragment),
	}, nil
}

// resolveFederatedUser maps a verified provider identity to an account:
// subject link first, then verified-email linking, then auto-signup when the
// deployment allows it.
func (s *Service) resolveFederatedUser(ctx context.Context, identity ports.OIDCIdentity, loginHint string) (domain.User, error) {
	subject := identity.Provider + ":" + strings.TrimSpace(identity.ProviderSub)

	if user, err := s.users.GetByExternalSubject(ctx, subject); err == nil {
		return user, nil
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		email = loginHint
	}
	if email != "" {
		if existing, err := s.users.GetByEmail(ctx, email); err == nil {
			// Provider has verified ownership of this address; link the
			// account so both sign-in paths converge on one profile.
			if err := s.users.LinkExternalSubject(ctx, existing.UserID, subject, s.nowFn()); err != nil {
				return domain.User{}, err
			}
			return existing, nil
		}
	}

	if !s.cfg.FederatedAutoSignup {
		return domain.User{}, domain.ErrNotSignedUp
	}
	if email == "" {
		return domain.User{}, fmt.Errorf("%w: provider returned no email", domain.ErrInvalidInput)
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}
	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"email":         email,
		"provider":      identity.Provider,
		"registered_at": now,
	})
	created, err := s.users.CreateWithOutboxTx(ctx, ports.CreateUserParams{
		Name:            name,
		Email:           email,
		PasswordHash:    "",
		ExternalSubject: subject,
		RegisteredAtUTC: now,
	}, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "user.registered",
		PartitionKey: email,
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		return domain.User{}, err
	}
	return created, nil
}

func (s *Service) isAllowedOIDCRedirectURI(redirectURI string) bool {
	if len(s.cfg.AllowedOIDCRedirectURIs) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedOIDCRedirectURIs {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), strings.TrimRight(redirectURI, "/")) {
			return true
		}
	}
	return false
}
