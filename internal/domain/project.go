package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus is the life-cycle state of a project.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusOnHold    ProjectStatus = "on-hold"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// IsValidProjectStatus reports whether s is one of the accepted states.
func IsValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case ProjectStatusActive, ProjectStatusCompleted, ProjectStatusOnHold, ProjectStatusCancelled:
		return true
	}
	return false
}

// ProjectPriority orders projects for dashboard views.
type ProjectPriority string

const (
	PriorityLow    ProjectPriority = "low"
	PriorityMedium ProjectPriority = "medium"
	PriorityHigh   ProjectPriority = "high"
)

// IsValidPriority reports whether p is one of the accepted priorities.
func IsValidPriority(p ProjectPriority) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Project is a client engagement owning a namespace of ticket numbers.
// Its display name seeds the ticket prefix, so renaming a project does not
// renumber already-issued tickets.
type Project struct {
	ProjectID     uuid.UUID
	OwnerID       uuid.UUID
	Name          string
	Description   string
	ClientName    string
	ClientEmail   string
	ClientPhone   string
	ClientAddress string
	StartDate     time.Time
	EndDate       time.Time
	Status        ProjectStatus
	Budget        string
	Priority      ProjectPriority
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TaskStatus is the life-cycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsValidTaskStatus reports whether s is one of the accepted states.
func IsValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// Task is a unit of work under a project. TicketNumber is immutable once
// assigned and never reissued, even after the task is deleted.
type Task struct {
	TaskID       uuid.UUID
	ProjectID    uuid.UUID
	TicketNumber string
	Title        string
	Description  string
	Status       TaskStatus
	AssignedTo   *uuid.UUID
	StartDate    time.Time
	DueDate      time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TeamMember is an addressable collaborator owned by an account. Membership
// in projects is a separate assignment relation, mirroring how members are
// created first and attached to projects afterwards.
type TeamMember struct {
	MemberID  uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Role      string
	Email     string
	Projects  []uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}
