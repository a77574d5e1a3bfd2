package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the canonical account record for Taskdeck. The backend copy is
// authoritative; clients hold a cached, possibly-stale projection of it.
type User struct {
	UserID          uuid.UUID
	Name            string
	Email           string
	PasswordHash    string
	ExternalSubject string
	IsActive        bool
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasPassword reports whether the account can authenticate locally.
// Federated-only accounts carry an empty hash.
func (u User) HasPassword() bool { return u.PasswordHash != "" }

// Session models a login session issued by the auth layer.
// We persist this separately from the token so per-device revocation and
// activity tracking stay source-of-truth driven.
type Session struct {
	SessionID      uuid.UUID
	UserID         uuid.UUID
	DeviceName     string
	DeviceOS       string
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
}

// LoginAttempt records authentication outcomes for audit and lockout controls.
type LoginAttempt struct {
	ID            int64
	UserID        *uuid.UUID
	AttemptAt     time.Time
	IPAddress     string
	Status        string
	FailureReason string
	DeviceName    string
	DeviceOS      string
	UserAgent     string
}
