package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether email or password failed.
	// The reason is to prevent account-enumeration side channels.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked signals temporary lockout after repeated failed attempts.
	ErrAccountLocked = errors.New("account locked")
	// ErrNotSignedUp is returned when a federated identity reaches the backend
	// before any matching account exists and auto-signup is disabled. Clients
	// must stay logged out and surface the message as-is.
	ErrNotSignedUp = errors.New("not signed up")

	ErrSessionRevoked      = errors.New("session revoked")
	ErrSessionExpired      = errors.New("session expired")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrRateLimited         = errors.New("rate limited")
	ErrIdempotencyConflict = errors.New("idempotency conflict")

	// ErrTicketCollision marks a supplied or freshly computed ticket number
	// that lost the insert race. Callers retry with a refreshed existing set;
	// the tasks table unique index is the source of truth.
	ErrTicketCollision = errors.New("ticket number already issued")
)
