package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/internal/domain"
)

// CreateUserParams captures atomic account-creation inputs. The outbox event
// rides in the same transaction so account state and integration signal
// cannot diverge.
type CreateUserParams struct {
	Name            string
	Email           string
	PasswordHash    string
	ExternalSubject string
	RegisteredAtUTC time.Time
}

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	CreateWithOutboxTx(ctx context.Context, params CreateUserParams, outboxEvent OutboxEvent) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	GetByExternalSubject(ctx context.Context, subject string) (domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, name, email string, updatedAt time.Time) (domain.User, error)
	LinkExternalSubject(ctx context.Context, userID uuid.UUID, subject string, linkedAt time.Time) error
}

// SessionCreateParams captures metadata required to create a session record.
// Device and network fields are stored for auditability.
type SessionCreateParams struct {
	UserID         uuid.UUID
	DeviceName     string
	DeviceOS       string
	IPAddress      string
	UserAgent      string
	ExpiresAt      time.Time
	LastActivityAt time.Time
}

// SessionRepository manages persistent session lifecycle. It is separate from
// token parsing so revocation and activity tracking remain source-of-truth
// driven.
type SessionRepository interface {
	Create(ctx context.Context, params SessionCreateParams) (domain.Session, error)
	GetByID(ctx context.Context, sessionID uuid.UUID) (domain.Session, error)
	TouchActivity(ctx context.Context, sessionID uuid.UUID, touchedAt time.Time) error
	RevokeByID(ctx context.Context, sessionID uuid.UUID, revokedAt time.Time) error
	RevokeAllByUser(ctx context.Context, userID uuid.UUID, revokedAt time.Time) error
}

// LoginAttemptRepository stores login outcomes used by lockout controls.
type LoginAttemptRepository interface {
	Insert(ctx context.Context, attempt domain.LoginAttempt) error
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	Create(ctx context.Context, project domain.Project) (domain.Project, error)
	GetByID(ctx context.Context, projectID uuid.UUID) (domain.Project, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Project, error)
	Update(ctx context.Context, project domain.Project) (domain.Project, error)
	Delete(ctx context.Context, projectID uuid.UUID) error
}

// TaskRepository persists tasks and owns ticket-number uniqueness. Create
// must fail with domain.ErrTicketCollision when the ticket number is already
// issued. Issued numbers stay visible to ListIssuedTicketNumbers after task
// deletion (allocation log) so sequences never restart, and the listing is
// prefix-scoped because two projects whose names collapse to the same prefix
// share one sequence space.
type TaskRepository interface {
	Create(ctx context.Context, task domain.Task) (domain.Task, error)
	GetByID(ctx context.Context, taskID uuid.UUID) (domain.Task, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Task, error)
	ListIssuedTicketNumbers(ctx context.Context, prefix string) ([]string, error)
	Update(ctx context.Context, task domain.Task) (domain.Task, error)
	Delete(ctx context.Context, taskID uuid.UUID, deletedAt time.Time) error
}

// TeamMemberRepository persists collaborators and project assignments.
type TeamMemberRepository interface {
	Create(ctx context.Context, member domain.TeamMember) (domain.TeamMember, error)
	GetByID(ctx context.Context, memberID uuid.UUID) (domain.TeamMember, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.TeamMember, error)
	AssignToProject(ctx context.Context, projectID uuid.UUID, memberIDs []uuid.UUID, assignedAt time.Time) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.TeamMember, error)
	Delete(ctx context.Context, memberID uuid.UUID) error
}

// OutboxEvent is the write-side event payload prior to storage.
// It is adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls publish-retry workflow for domain events.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

// IdempotencyRecord tracks a previously accepted mutating request. Storing
// response metadata lets handlers return stable replay responses, which is
// what keeps a retried task creation from allocating a second ticket number.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdempotencyRepository enforces idempotent mutation semantics.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}
