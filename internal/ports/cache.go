package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LockoutState is the failure-count view used by login throttling.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// LockoutStore tracks repeated credential failures per identifier.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}

// SessionRevocationStore is the fast-path revocation check consulted before
// any token is trusted, so logout takes effect before the JWT expires.
type SessionRevocationStore interface {
	MarkRevoked(ctx context.Context, sessionID uuid.UUID, expiresAt time.Time) error
	IsRevoked(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// OIDCAuthState is the per-authorization transient state persisted between
// the authorize redirect and the provider callback.
type OIDCAuthState struct {
	Provider     string
	RedirectURI  string
	Nonce        string
	LoginHint    string
	CodeVerifier string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// OIDCStateStore persists authorize state across the federated round-trip.
type OIDCStateStore interface {
	Put(ctx context.Context, state string, value OIDCAuthState, ttl time.Duration) error
	Get(ctx context.Context, state string) (*OIDCAuthState, error)
	Delete(ctx context.Context, state string) error
}

// RateLimiter caps request volume per key within a rolling window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, threshold int, window time.Duration) (bool, error)
}
