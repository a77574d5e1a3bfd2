package postgres

import (
	"github.com/taskdeck/taskdeck/internal/ports"
	"gorm.io/gorm"
)

// Repositories bundles every Postgres-backed port implementation behind one
// constructor so bootstrap wires a single value.
type Repositories struct {
	Users         ports.UserRepository
	Sessions      ports.SessionRepository
	LoginAttempts ports.LoginAttemptRepository
	Projects      ports.ProjectRepository
	Tasks         ports.TaskRepository
	Members       ports.TeamMemberRepository
	Outbox        ports.OutboxRepository
	Idempotency   ports.IdempotencyRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:         &userRepository{db: db},
		Sessions:      &sessionRepository{db: db},
		LoginAttempts: &loginAttemptRepository{db: db},
		Projects:      &projectRepository{db: db},
		Tasks:         &taskRepository{db: db},
		Members:       &teamMemberRepository{db: db},
		Outbox:        &outboxRepository{db: db},
		Idempotency:   &idempotencyRepository{db: db},
	}
}
