package postgres

import (
	"errors"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/domain"
	"gorm.io/gorm"
)

func toDomainUser(row userModel) domain.User {
	subject := ""
	if row.ExternalSubject != nil {
		subject = *row.ExternalSubject
	}
	return domain.User{
		UserID:          row.UserID,
		Name:            row.Name,
		Email:           row.Email,
		PasswordHash:    row.PasswordHash,
		ExternalSubject: subject,
		IsActive:        row.IsActive,
		DeletedAt:       row.DeletedAt,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func toDomainSession(row sessionModel) domain.Session {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	return domain.Session{
		SessionID:      row.SessionID,
		UserID:         row.UserID,
		DeviceName:     row.DeviceName,
		DeviceOS:       row.DeviceOS,
		IPAddress:      ip,
		UserAgent:      row.UserAgent,
		CreatedAt:      row.CreatedAt,
		LastActivityAt: row.LastActivityAt,
		ExpiresAt:      row.ExpiresAt,
		RevokedAt:      row.RevokedAt,
	}
}

func toDomainProject(row projectModel) domain.Project {
	return domain.Project{
		ProjectID:     row.ProjectID,
		OwnerID:       row.OwnerID,
		Name:          row.Name,
		Description:   row.Description,
		ClientName:    row.ClientName,
		ClientEmail:   row.ClientEmail,
		ClientPhone:   row.ClientPhone,
		ClientAddress: row.ClientAddress,
		StartDate:     timeValue(row.StartDate),
		EndDate:       timeValue(row.EndDate),
		Status:        domain.ProjectStatus(row.Status),
		Budget:        row.Budget,
		Priority:      domain.ProjectPriority(row.Priority),
		Notes:         row.Notes,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func toProjectModel(p domain.Project) projectModel {
	return projectModel{
		ProjectID:     p.ProjectID,
		OwnerID:       p.OwnerID,
		Name:          p.Name,
		Description:   p.Description,
		ClientName:    p.ClientName,
		ClientEmail:   p.ClientEmail,
		ClientPhone:   p.ClientPhone,
		ClientAddress: p.ClientAddress,
		StartDate:     nullableTime(p.StartDate),
		EndDate:       nullableTime(p.EndDate),
		Status:        string(p.Status),
		Budget:        p.Budget,
		Priority:      string(p.Priority),
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toDomainTask(row taskModel) domain.Task {
	return domain.Task{
		TaskID:       row.TaskID,
		ProjectID:    row.ProjectID,
		TicketNumber: row.TicketNumber,
		Title:        row.Title,
		Description:  row.Description,
		Status:       domain.TaskStatus(row.Status),
		AssignedTo:   row.AssignedTo,
		StartDate:    timeValue(row.StartDate),
		DueDate:      timeValue(row.DueDate),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toDomainTeamMember(row teamMemberModel) domain.TeamMember {
	return domain.TeamMember{
		MemberID:  row.MemberID,
		OwnerID:   row.OwnerID,
		Name:      row.Name,
		Role:      row.Role,
		Email:     row.Email,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
