package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID          uuid.UUID  `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string     `gorm:"column:name"`
	Email           string     `gorm:"column:email"`
	PasswordHash    string     `gorm:"column:password_hash"`
	ExternalSubject *string    `gorm:"column:external_subject"`
	IsActive        bool       `gorm:"column:is_active"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
	DeletedAt       *time.Time `gorm:"column:deleted_at"`
}

func (userModel) TableName() string { return "users" }

type sessionModel struct {
	SessionID      uuid.UUID  `gorm:"column:session_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id"`
	DeviceName     string     `gorm:"column:device_name"`
	DeviceOS       string     `gorm:"column:device_os"`
	IPAddress      *string    `gorm:"column:ip_address"`
	UserAgent      string     `gorm:"column:user_agent"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	LastActivityAt time.Time  `gorm:"column:last_activity_at"`
	ExpiresAt      time.Time  `gorm:"column:expires_at"`
	RevokedAt      *time.Time `gorm:"column:revoked_at"`
}

func (sessionModel) TableName() string { return "sessions" }

type loginAttemptModel struct {
	ID            int64      `gorm:"column:id;primaryKey"`
	UserID        *uuid.UUID `gorm:"column:user_id"`
	AttemptAt     time.Time  `gorm:"column:attempt_at"`
	IPAddress     *string    `gorm:"column:ip_address"`
	Status        string     `gorm:"column:status"`
	FailureReason string     `gorm:"column:failure_reason"`
	DeviceName    string     `gorm:"column:device_name"`
	DeviceOS      string     `gorm:"column:device_os"`
	UserAgent     string     `gorm:"column:user_agent"`
}

func (loginAttemptModel) TableName() string { return "login_attempts" }

type projectModel struct {
	ProjectID     uuid.UUID  `gorm:"column:project_id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID       uuid.UUID  `gorm:"column:owner_id"`
	Name          string     `gorm:"column:name"`
	Description   string     `gorm:"column:description"`
	ClientName    string     `gorm:"column:client_name"`
	ClientEmail   string     `gorm:"column:client_email"`
	ClientPhone   string     `gorm:"column:client_phone"`
	ClientAddress string     `gorm:"column:client_address"`
	StartDate     *time.Time `gorm:"column:start_date"`
	EndDate       *time.Time `gorm:"column:end_date"`
	Status        string     `gorm:"column:status"`
	Budget        string     `gorm:"column:budget"`
	Priority      string     `gorm:"column:priority"`
	Notes         string     `gorm:"column:notes"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (projectModel) TableName() string { return "projects" }

type taskModel struct {
	TaskID       uuid.UUID  `gorm:"column:task_id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID    uuid.UUID  `gorm:"column:project_id"`
	TicketNumber string     `gorm:"column:ticket_number"`
	Title        string     `gorm:"column:title"`
	Description  string     `gorm:"column:description"`
	Status       string     `gorm:"column:status"`
	AssignedTo   *uuid.UUID `gorm:"column:assigned_to"`
	StartDate    *time.Time `gorm:"column:start_date"`
	DueDate      *time.Time `gorm:"column:due_date"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (taskModel) TableName() string { return "tasks" }

// ticketAllocationModel is the permanent record of every ticket number ever
// issued. Rows outlive their task so a number is never reissued.
type ticketAllocationModel struct {
	TicketNumber string     `gorm:"column:ticket_number;primaryKey"`
	Prefix       string     `gorm:"column:prefix"`
	ProjectID    uuid.UUID  `gorm:"column:project_id"`
	AllocatedAt  time.Time  `gorm:"column:allocated_at"`
	ReleasedAt   *time.Time `gorm:"column:released_at"`
}

func (ticketAllocationModel) TableName() string { return "ticket_allocations" }

type teamMemberModel struct {
	MemberID  uuid.UUID `gorm:"column:member_id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID `gorm:"column:owner_id"`
	Name      string    `gorm:"column:name"`
	Role      string    `gorm:"column:role"`
	Email     string    `gorm:"column:email"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (teamMemberModel) TableName() string { return "team_members" }

type projectMemberModel struct {
	ProjectID  uuid.UUID `gorm:"column:project_id;primaryKey"`
	MemberID   uuid.UUID `gorm:"column:member_id;primaryKey"`
	AssignedAt time.Time `gorm:"column:assigned_at"`
}

func (projectMemberModel) TableName() string { return "project_members" }

type outboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "taskdeck_outbox" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "taskdeck_idempotency" }
