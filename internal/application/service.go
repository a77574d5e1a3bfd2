package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/ports"
)

type Service struct {
	cfg           Config
	users         ports.UserRepository
	sessions      ports.SessionRepository
	loginAttempts ports.LoginAttemptRepository
	projects      ports.ProjectRepository
	tasks         ports.TaskRepository
	members       ports.TeamMemberRepository
	outbox        ports.OutboxRepository
	idempotency   ports.IdempotencyRepository
	lockouts      ports.LockoutStore
	revocations   ports.SessionRevocationStore
	oidcState     ports.OIDCStateStore
	oidcVerifier  ports.OIDCVerifier
	hasher        ports.PasswordHasher
	tokenSigner   ports.TokenSigner
	limiter       ports.RateLimiter
	metrics       ports.Metrics
	nowFn         func() time.Time
}

type Dependencies struct {
	Config        Config
	Users         ports.UserRepository
	Sessions      ports.SessionRepository
	LoginAttempts ports.LoginAttemptRepository
	Projects      ports.ProjectRepository
	Tasks         ports.TaskRepository
	Members       ports.TeamMemberRepository
	Outbox        ports.OutboxRepository
	Idempotency   ports.IdempotencyRepository
	Lockouts      ports.LockoutStore
	Revocations   ports.SessionRevocationStore
	OIDCState     ports.OIDCStateStore
	OIDCVerifier  ports.OIDCVerifier
	Hasher        ports.PasswordHasher
	TokenSigner   ports.TokenSigner
	Limiter       ports.RateLimiter
	Metrics       ports.Metrics
}

func NewService(deps Dependencies) *Service {
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics{}
	}
	return &Service{
		cfg:           deps.Config,
		users:         deps.Users,
		sessions:      deps.Sessions,
		loginAttempts: deps.LoginAttempts,
		projects:      deps.Projects,
		tasks:         deps.Tasks,
		members:       deps.Members,
		outbox:        deps.Outbox,
		idempotency:   deps.Idempotency,
		lockouts:      deps.Lockouts,
		revocations:   deps.Revocations,
		oidcState:     deps.OIDCState,
		oidcVerifier:  deps.OIDCVerifier,
		hasher:        deps.Hasher,
		tokenSigner:   deps.TokenSigner,
		limiter:       deps.Limiter,
		metrics:       deps.Metrics,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}

// enforceRateLimit is fail-open: a missing limiter or a limiter backend
// error never blocks the request, only an explicit over-threshold answer.
func (s *Service) enforceRateLimit(ctx context.Context, key string, threshold int, window time.Duration) error {
	if s.limiter == nil || threshold <= 0 || window <= 0 {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, key, threshold, window)
	if err != nil {
		return nil
	}
	if !allowed {
		return domain.ErrRateLimited
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

func hashRequest(req any) string {
	raw, _ := json.Marshal(req)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func randomHex(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}

func randomBase32(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return strings.TrimRight(base32.StdEncoding.EncodeToString(raw), "=")
}

func generatePKCEVerifierChallenge() (string, string) {
	verifier := randomBase32(32)
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge
}

func buildRedirectWithFragment(redirectURI, fragment string) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}
	if u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = fragment
	return u.String()
}
