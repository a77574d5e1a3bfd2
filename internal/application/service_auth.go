package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/ports"
)

// Signup creates a local account and emits a registration outbox event in one
// transaction so account state and integration signal cannot diverge, then
// opens the first session so the client lands logged in.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return AuthResponse{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return AuthResponse{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return AuthResponse{}, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"email":         email,
		"registered_at": now,
	})
	user, err := s.users.CreateWithOutboxTx(ctx, ports.CreateUserParams{
		Name:            name,
		Email:           email,
		PasswordHash:    passwordHash,
		RegisteredAtUTC: now,
	}, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "user.registered",
		PartitionKey: email,
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		return AuthResponse{}, err
	}

	return s.openSession(ctx, user, sessionMeta{
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	}, "signup successful")
}

// Login verifies credentials against the stored hash and opens a session.
// Failures are recorded for lockout; the error never reveals whether the
// email or the password was wrong.
func (s *Service) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return AuthResponse{}, err
	}

	if ip := strings.TrimSpace(req.IPAddress); ip != "" {
		if err := s.enforceRateLimit(ctx, "login:ip:"+ip, s.cfg.LoginRateLimitThreshold, s.cfg.LoginRateLimitWindow); err != nil {
			return AuthResponse{}, err
		}
	}
	if err := s.enforceRateLimit(ctx, "login:email:"+email, s.cfg.LoginRateLimitThreshold, s.cfg.LoginRateLimitWindow); err != nil {
		return AuthResponse{}, err
	}

	lockKey := "login:" + email
	lockState, err := s.lockouts.Get(ctx, lockKey)
	if err == nil && lockState.LockedUntil != nil && lockState.LockedUntil.After(s.nowFn()) {
		return AuthResponse{}, domain.ErrAccountLocked
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.recordFailure(ctx, nil, req, "USER_NOT_FOUND")
		return AuthResponse{}, domain.ErrInvalidCredentials
	}
	if !user.HasPassword() {
		s.recordFailure(ctx, &user.UserID, req, "FEDERATED_ONLY_ACCOUNT")
		return AuthResponse{}, domain.ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.recordFailure(ctx, &user.UserID, req, "INVALID_PASSWORD")
		_, _ = s.lockouts.RecordFailure(ctx, lockKey, s.nowFn(), s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
		return AuthResponse{}, domain.ErrInvalidCredentials
	}

	_ = s.lockouts.Clear(ctx, lockKey)
	_ = s.loginAttempts.Insert(ctx, domain.LoginAttempt{
		UserID:     &user.UserID,
		AttemptAt:  s.nowFn(),
		IPAddress:  req.IPAddress,
		Status:     "SUCCESS",
		DeviceName: req.DeviceName,
		DeviceOS:   req.DeviceOS,
		UserAgent:  req.UserAgent,
	})

	return s.openSession(ctx, user, sessionMeta{
		DeviceName: req.DeviceName,
		DeviceOS:   req.DeviceOS,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	}, "login successful")
}

// VerifyToken validates a bearer token and returns the account behind it.
// Clients call this once at startup to resurrect a persisted session; an
// invalid, revoked or expired token yields ErrUnauthorized and the client
// falls back to logged-out.
func (s *Service) VerifyToken(ctx context.Context, token string) (VerifyTokenResponse, error) {
	if strings.TrimSpace(token) == "" {
		return VerifyTokenResponse{}, fmt.Errorf("%w: token is required", domain.ErrInvalidInput)
	}
	claims, err := s.ValidateToken(ctx, token)
	if err != nil {
		return VerifyTokenResponse{}, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return VerifyTokenResponse{}, domain.ErrUnauthorized
	}
	_ = s.sessions.TouchActivity(ctx, claims.SessionID, s.nowFn())
	return VerifyTokenResponse{
		User:    toUserPayload(user),
		Message: "token valid",
	}, nil
}

// Refresh exchanges a still-valid token for a fresh one bound to the same
// session. Session-level revocation and both TTLs are re-checked so a stolen
// token cannot outlive its session.
func (s *Service) Refresh(ctx context.Context, jwtToken string) (RefreshResponse, error) {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return RefreshResponse{}, err
	}

	now := s.nowFn()
	_ = s.sessions.TouchActivity(ctx, claims.SessionID, now)

	newToken, err := s.tokenSigner.Sign(ports.AuthClaims{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Name:      claims.Name,
		SessionID: claims.SessionID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	})
	if err != nil {
		return RefreshResponse{}, fmt.Errorf("sign refreshed token: %w", err)
	}
	return RefreshResponse{
		Token:     newToken,
		ExpiresIn: int64(s.cfg.TokenTTL.Seconds()),
	}, nil
}

// Logout revokes the current session and flags it in the revocation store so
// outstanding tokens die immediately rather than at JWT expiry.
func (s *Service) Logout(ctx context.Context, jwtToken string) error {
	claims, err := s.tokenSigner.ParseAndValidate(jwtToken)
	if err != nil {
		return domain.ErrUnauthorized
	}
	now := s.nowFn()
	if err := s.sessions.RevokeByID(ctx, claims.SessionID, now); err != nil {
		return err
	}
	_ = s.revocations.MarkRevoked(ctx, claims.SessionID, now.Add(s.cfg.TokenTTL))
	return nil
}

// UpdateProfile applies a server-acknowledged profile change. Only the
// account owner may update their record; the refreshed payload is what
// clients merge into their cached profile.
func (s *Service) UpdateProfile(ctx context.Context, jwtToken string, userID uuid.UUID, req UpdateProfileRequest) (UserPayload, error) {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return UserPayload{}, err
	}
	if claims.UserID != userID {
		return UserPayload{}, domain.ErrUnauthorized
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return UserPayload{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return UserPayload{}, err
	}

	now := s.nowFn()
	user, err := s.users.UpdateProfile(ctx, userID, name, email, now)
	if err != nil {
		return UserPayload{}, err
	}

	payload, _ := json.Marshal(map[string]any{
		"user_id":    user.UserID,
		"updated_at": now,
	})
	_ = s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "user.profile_updated",
		PartitionKey: user.UserID.String(),
		Payload:      payload,
		OccurredAt:   now,
	})

	return toUserPayload(user), nil
}

// ValidateToken parses a bearer token and re-checks it against session state:
// revocation flag, per-session expiry and the absolute session ceiling.
func (s *Service) ValidateToken(ctx context.Context, token string) (ports.AuthClaims, error) {
	claims, err := s.tokenSigner.ParseAndValidate(token)
	if err != nil {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	if revoked, _ := s.revocations.IsRevoked(ctx, claims.SessionID); revoked {
		return ports.AuthClaims{}, domain.ErrSessionRevoked
	}
	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	if session.UserID != claims.UserID {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	if session.RevokedAt != nil {
		return ports.AuthClaims{}, domain.ErrSessionRevoked
	}
	if session.ExpiresAt.Before(s.nowFn()) {
		return ports.AuthClaims{}, domain.ErrSessionExpired
	}
	if session.CreatedAt.Add(s.cfg.SessionAbsoluteTTL).Before(s.nowFn()) {
		return ports.AuthClaims{}, domain.ErrSessionExpired
	}
	return claims, nil
}

// PublicJWKs exposes the verification keys for sibling services.
func (s *Service) PublicJWKs() ([]map[string]any, error) {
	return s.tokenSigner.PublicJWKs()
}

type sessionMeta struct {
	DeviceName string
	DeviceOS   string
	IPAddress  string
	UserAgent  string
}

func (s *Service) openSession(ctx context.Context, user domain.User, meta sessionMeta, message string) (AuthResponse, error) {
	now := s.nowFn()
	session, err := s.sessions.Create(ctx, ports.SessionCreateParams{
		UserID:         user.UserID,
		DeviceName:     meta.DeviceName,
		DeviceOS:       meta.DeviceOS,
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
		ExpiresAt:      now.Add(s.cfg.SessionTTL),
		LastActivityAt: now,
	})
	if err != nil {
		return AuthResponse{}, fmt.Errorf("create session: %w", err)
	}

	token, err := s.tokenSigner.Sign(ports.AuthClaims{
		UserID:    user.UserID,
		Email:     user.Email,
		Name:      user.Name,
		SessionID: session.SessionID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	})
	if err != nil {
		return AuthResponse{}, fmt.Errorf("sign token: %w", err)
	}

	return AuthResponse{
		User:      toUserPayload(user),
		Token:     token,
		SessionID: session.SessionID,
		ExpiresIn: int64(s.cfg.TokenTTL.Seconds()),
		Message:   message,
	}, nil
}

func (s *Service) recordFailure(ctx context.Context, userID *uuid.UUID, req LoginRequest, reason string) {
	s.metrics.RecordLoginFailure()
	_ = s.loginAttempts.Insert(ctx, domain.LoginAttempt{
		UserID:        userID,
		AttemptAt:     s.nowFn(),
		IPAddress:     req.IPAddress,
		Status:        "FAILED",
		FailureReason: reason,
		DeviceName:    req.DeviceName,
		DeviceOS:      req.DeviceOS,
		UserAgent:     req.UserAgent,
	})
}
