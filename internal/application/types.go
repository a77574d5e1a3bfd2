package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/internal/domain"
)

type Config struct {
	TokenTTL             time.Duration
	SessionTTL           time.Duration
	SessionAbsoluteTTL   time.Duration
	FailedLoginThreshold int
	LockoutDuration      time.Duration

	// FederatedAutoSignup controls "sign up on first federated login". When
	// disabled, an unknown federated identity is rejected with
	// domain.ErrNotSignedUp instead of creating an account.
	FederatedAutoSignup      bool
	AllowedOIDCRedirectURIs  []string
	TaskIdempotencyTTL       time.Duration
	LoginRateLimitThreshold  int
	LoginRateLimitWindow     time.Duration
}

// UserPayload is the wire projection of an account, shared by auth and
// profile responses.
type UserPayload struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserPayload(u domain.User) UserPayload {
	return UserPayload{
		ID:        u.UserID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
	DeviceName string `json:"deviceName,omitempty"`
	DeviceOS   string `json:"deviceOs,omitempty"`
}

// AuthResponse is returned by signup, login and the federated completion.
// Message mirrors the original backend contract consumed by clients.
type AuthResponse struct {
	User      UserPayload `json:"user"`
	Token     string      `json:"token"`
	SessionID uuid.UUID   `json:"sessionId"`
	ExpiresIn int64       `json:"expiresIn"`
	Message   string      `json:"message"`
}

type VerifyTokenRequest struct {
	Token string `json:"token"`
}

type VerifyTokenResponse struct {
	User    UserPayload `json:"user"`
	Message string      `json:"message"`
}

type RefreshResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type OIDCAuthorizeResponse struct {
	AuthorizeURL string `json:"authorizeUrl"`
	State        string `json:"state"`
}

// OIDCCallbackResult carries the post-exchange redirect the browser should
// follow; the token travels in the URL fragment so it never hits server logs.
type OIDCCallbackResult struct {
	RedirectURL string
}

type ProjectPayload struct {
	ID            uuid.UUID             `json:"id"`
	Name          string                `json:"projectName"`
	Description   string                `json:"description"`
	ClientName    string                `json:"clientName"`
	ClientEmail   string                `json:"clientEmail"`
	ClientPhone   string                `json:"clientPhone"`
	ClientAddress string                `json:"clientAddress"`
	StartDate     time.Time             `json:"startDate"`
	EndDate       time.Time             `json:"endDate"`
	Status        domain.ProjectStatus  `json:"status"`
	Budget        string                `json:"budget"`
	Priority      domain.ProjectPriority `json:"priority"`
	Notes         string                `json:"notes,omitempty"`
	TicketPrefix  string                `json:"ticketPrefix"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

type CreateProjectRequest struct {
	Name          string                 `json:"projectName"`
	Description   string                 `json:"description"`
	ClientName    string                 `json:"clientName"`
	ClientEmail   string                 `json:"clientEmail"`
	ClientPhone   string                 `json:"clientPhone"`
	ClientAddress string                 `json:"clientAddress"`
	StartDate     time.Time              `json:"startDate"`
	EndDate       time.Time              `json:"endDate"`
	Status        domain.ProjectStatus   `json:"status"`
	Budget        string                 `json:"budget"`
	Priority      domain.ProjectPriority `json:"priority"`
	Notes         string                 `json:"notes"`
}

// UpdateProjectRequest is a partial update; nil fields are left unchanged.
type UpdateProjectRequest struct {
	Name          *string                 `json:"projectName"`
	Description   *string                 `json:"description"`
	ClientName    *string                 `json:"clientName"`
	ClientEmail   *string                 `json:"clientEmail"`
	ClientPhone   *string                 `json:"clientPhone"`
	ClientAddress *string                 `json:"clientAddress"`
	StartDate     *time.Time              `json:"startDate"`
	EndDate       *time.Time              `json:"endDate"`
	Status        *domain.ProjectStatus   `json:"status"`
	Budget        *string                 `json:"budget"`
	Priority      *domain.ProjectPriority `json:"priority"`
	Notes         *string                 `json:"notes"`
}

type TaskPayload struct {
	ID           uuid.UUID         `json:"id"`
	ProjectID    uuid.UUID         `json:"project"`
	TicketNumber string            `json:"ticketNumber"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Status       domain.TaskStatus `json:"status"`
	AssignedTo   *uuid.UUID        `json:"assignedTo,omitempty"`
	StartDate    time.Time         `json:"startDate"`
	DueDate      time.Time         `json:"dueDate"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

type CreateTaskRequest struct {
	ProjectID   uuid.UUID         `json:"project"`
	// TicketNumber is an optional client-computed preview. The service
	// re-validates it and regenerates on collision; the stored value is
	// always server-authoritative.
	TicketNumber string            `json:"ticketNumber"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Status       domain.TaskStatus `json:"status"`
	AssignedTo   *uuid.UUID        `json:"assignedTo"`
	StartDate    time.Time         `json:"startDate"`
	DueDate      time.Time         `json:"dueDate"`
}

type UpdateTaskRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Status      *domain.TaskStatus `json:"status"`
	AssignedTo  *uuid.UUID         `json:"assignedTo"`
	StartDate   *time.Time         `json:"startDate"`
	DueDate     *time.Time         `json:"dueDate"`
}

type TeamMemberPayload struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Role      string      `json:"role"`
	Email     string      `json:"email"`
	Projects  []uuid.UUID `json:"projects"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type CreateTeamMemberRequest struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

type AssignMembersRequest struct {
	ProjectID     uuid.UUID   `json:"projectId"`
	TeamMemberIDs []uuid.UUID `json:"teamMemberIds"`
}
