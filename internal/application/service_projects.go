package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/ports"
	"github.com/taskdeck/taskdeck/ticket"
)

// CreateProject validates and stores a new project for the authenticated
// owner. The derived ticket prefix is reported back so clients can preview
// numbering before any task exists.
func (s *Service) CreateProject(ctx context.Context, jwtToken string, req CreateProjectRequest) (ProjectPayload, error) {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return ProjectPayload{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ProjectPayload{}, fmt.Errorf("%w: projectName is required", domain.ErrInvalidInput)
	}
	status := req.Status
	if status == "" {
		status = domain.ProjectStatusActive
	}
	if !domain.IsValidProjectStatus(status) {
		return ProjectPayload{}, fmt.Errorf("%w: unknown project status %q", domain.ErrInvalidInput, req.Status)
	}
	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.IsValidPriority(priority) {
		return ProjectPayload{}, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, req.Priority)
	}
	if !req.EndDate.IsZero() && !req.StartDate.IsZero() && req.EndDate.Before(req.StartDate) {
		return ProjectPayload{}, fmt.Errorf("%w: endDate before startDate", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	project, err := s.projects.Create(ctx, domain.Project{
		OwnerID:       claims.UserID,
		Name:          name,
		Description:   strings.TrimSpace(req.Description),
		ClientName:    strings.TrimSpace(req.ClientName),
		ClientEmail:   strings.TrimSpace(req.ClientEmail),
		ClientPhone:   strings.TrimSpace(req.ClientPhone),
		ClientAddress: strings.TrimSpace(req.ClientAddress),
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Status:        status,
		Budget:        strings.TrimSpace(req.Budget),
		Priority:      priority,
		Notes:         strings.TrimSpace(req.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return ProjectPayload{}, err
	}

	payload, _ := json.Marshal(map[string]any{
		"project_id": project.ProjectID,
		"owner_id":   project.OwnerID,
		"created_at": now,
	})
	_ = s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "project.created",
		PartitionKey: project.ProjectID.String(),
		Payload:      payload,
		OccurredAt:   now,
	})

	return toProjectPayload(project), nil
}

// GetProject returns one owned project.
func (s *Service) GetProject(ctx context.Context, jwtToken string, projectID uuid.UUID) (ProjectPayload, error) {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return ProjectPayload{}, err
	}
	project, err := s.ownedProject(ctx, claims.UserID, projectID)
	if err != nil {
		return ProjectPayload{}, err
	}
	return toProjectPayload(project), nil
}

// ListProjects returns every project owned by the caller.
func (s *Service) ListProjects(ctx context.Context, jwtToken string) ([]ProjectPayload, error) {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return nil, err
	}
	projects, err := s.projects.ListByOwner(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	result := make([]ProjectPayload, 0, len(projects))
	for _, p := range projects {
		result = append(result, toProjectPayload(p))
	}
	return result, nil
}

// UpdateProject applies a partial update. Renaming a project is allowed and
// changes the prefix of future tickets only; issued ticket numbers are never
// rewritten.
func (s *Service) UpdateProject(ctx context.Context, jwtToken string, projectID uuid.UUID, req UpdateProjectRequest) (ProjectPayload, error) {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return ProjectPayload{}, err
	}
	project, err := s.ownedProject(ctx, claims.UserID, projectID)
	if err != nil {
		return ProjectPayload{}, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return ProjectPayload{}, fmt.Errorf("%w: projectName cannot be empty", domain.ErrInvalidInput)
		}
		project.Name = name
	}
	if req.Description != nil {
		project.Description = strings.TrimSpace(*req.Description)
	}
	if req.ClientName != nil {
		project.ClientName = strings.TrimSpace(*req.ClientName)
	}
	if req.ClientEmail != nil {
		project.ClientEmail = strings.TrimSpace(*req.ClientEmail)
	}
	if req.ClientPhone != nil {
		project.ClientPhone = strings.TrimSpace(*req.ClientPhone)
	}
	if req.ClientAddress != nil {
		project.ClientAddress = strings.TrimSpace(*req.ClientAddress)
	}
	if req.StartDate != nil {
		project.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		project.EndDate = *req.EndDate
	}
	if req.Status != nil {
		if !domain.IsValidProjectStatus(*req.Status) {
			return ProjectPayload{}, fmt.Errorf("%w: unknown project status %q", domain.ErrInvalidInput, *req.Status)
		}
		project.Status = *req.Status
	}
	if req.Budget != nil {
		project.Budget = strings.TrimSpace(*req.Budget)
	}
	if req.Priority != nil {
		if !domain.IsValidPriority(*req.Priority) {
			return ProjectPayload{}, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, *req.Priority)
		}
		project.Priority = *req.Priority
	}
	if req.Notes != nil {
		project.Notes = strings.TrimSpace(*req.Notes)
	}
	project.UpdatedAt = s.nowFn()

	updated, err := s.projects.Update(ctx, project)
	if err != nil {
		return ProjectPayload{}, err
	}
	return toProjectPayload(updated), nil
}

// DeleteProject removes an owned project. Issued ticket numbers survive in
// the allocation log, so recreating a same-named project continues the old
// sequence instead of reissuing numbers.
func (s *Service) DeleteProject(ctx context.Context, jwtToken string, projectID uuid.UUID) error {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return err
	}
	if _, err := s.ownedProject(ctx, claims.UserID, projectID); err != nil {
		return err
	}
	return s.projects.Delete(ctx, projectID)
}

func (s *Service) ownedProject(ctx context.Context, ownerID, projectID uuid.UUID) (domain.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if project.OwnerID != ownerID {
		return domain.Project{}, domain.ErrUnauthorized
	}
	return project, nil
}

func toProjectPayload(p domain.Project) ProjectPayload {
	return ProjectPayload{
		ID:            p.ProjectID,
		Name:          p.Name,
		Description:   p.Description,
		ClientName:    p.ClientName,
		ClientEmail:   p.ClientEmail,
		ClientPhone:   p.ClientPhone,
		ClientAddress: p.ClientAddress,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		Status:        p.Status,
		Budget:        p.Budget,
		Priority:      p.Priority,
		Notes:         p.Notes,
		TicketPrefix:  ticket.DerivePrefix(p.Name),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
