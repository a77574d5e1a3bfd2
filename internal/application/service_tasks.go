package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/ports"
	"github.com/taskdeck/taskdeck/ticket"
)

// ticketAllocationAttempts bounds the create/collision/retry loop. Each retry
// re-reads the issued set, so more than a couple of rounds means something is
// systematically wrong rather than racing.
const ticketAllocationAttempts = 3

// CreateTask stores a task under an owned project, allocating its ticket
// number server-side. A client-supplied number is treated as a preview: it is
// accepted when it is a well-formed number under the project prefix and is
// still free, and silently regenerated otherwise. The tasks table unique index is the last word; on a
// collision the allocator re-runs against the refreshed issued set.
func (s *Service) CreateTask(ctx context.Context, jwtToken string, req CreateTaskRequest, idempotencyKey string) (TaskPayload, error) {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return TaskPayload{}, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return TaskPayload{}, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if req.ProjectID == uuid.Nil {
		return TaskPayload{}, fmt.Errorf("%w: project is required", domain.ErrInvalidInput)
	}
	status := req.Status
	if status == "" {
		status = domain.TaskStatusPending
	}
	if !domain.IsValidTaskStatus(status) {
		return TaskPayload{}, fmt.Errorf("%w: unknown task status %q", domain.ErrInvalidInput, req.Status)
	}
	if !req.DueDate.IsZero() && !req.StartDate.IsZero() && req.DueDate.Before(req.StartDate) {
		return TaskPayload{}, fmt.Errorf("%w: dueDate before startDate", domain.ErrInvalidInput)
	}

	project, err := s.ownedProject(ctx, claims.UserID, req.ProjectID)
	if err != nil {
		return TaskPayload{}, err
	}

	if idempotencyKey != "" {
		if cached, ok, err := s.replayIdempotent(ctx, idempotencyKey, req); err != nil {
			return TaskPayload{}, err
		} else if ok {
			return cached, nil
		}
		if err := s.idempotency.Reserve(ctx, idempotencyKey, hashRequest(req), s.nowFn().Add(s.cfg.TaskIdempotencyTTL)); err != nil {
			return TaskPayload{}, fmt.Errorf("%w: %v", domain.ErrIdempotencyConflict, err)
		}
	}

	// The preview is advisory only. Anything that is not a well-formed
	// number under this project's prefix is regenerated, never persisted:
	// a malformed suffix would occupy the namespace with a number the
	// allocator can neither see nor continue from.
	requested := strings.TrimSpace(req.TicketNumber)
	if requested != "" && !ticket.Belongs(requested, project.Name) {
		requested = ""
	}

	prefix := ticket.DerivePrefix(project.Name)
	var created domain.Task
	for attempt := 0; attempt < ticketAllocationAttempts; attempt++ {
		issued, err := s.tasks.ListIssuedTicketNumbers(ctx, prefix)
		if err != nil {
			return TaskPayload{}, err
		}

		number := requested
		if number == "" || issuedContains(issued, number) {
			number = ticket.Next(project.Name, issued)
		}

		now := s.nowFn()
		created, err = s.tasks.Create(ctx, domain.Task{
			ProjectID:    project.ProjectID,
			TicketNumber: number,
			Title:        title,
			Description:  strings.TrimSpace(req.Description),
			Status:       status,
			AssignedTo:   req.AssignedTo,
			StartDate:    req.StartDate,
			DueDate:      req.DueDate,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err == nil {
			s.metrics.RecordTicketIssued()
			break
		}
		if !errors.Is(err, domain.ErrTicketCollision) {
			return TaskPayload{}, err
		}
		s.metrics.RecordTicketCollision()
		// Lost the race; the preview (if any) is burned, re-derive.
		requested = ""
		if attempt == ticketAllocationAttempts-1 {
			return TaskPayload{}, domain.ErrTicketCollision
		}
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"task_id":       created.TaskID,
		"project_id":    created.ProjectID,
		"ticket_number": created.TicketNumber,
		"created_at":    now,
	})
	_ = s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "task.created",
		PartitionKey: created.ProjectID.String(),
		Payload:      payload,
		OccurredAt:   now,
	})

	result := toTaskPayload(created)
	if idempotencyKey != "" {
		body, _ := json.Marshal(result)
		_ = s.idempotency.Complete(ctx, idempotencyKey, 201, body, now)
	}
	return result, nil
}

// NextTicketNumber reports the number the next created task would get.
// It is a preview only; creation re-derives against the then-current set.
func (s *Service) NextTicketNumber(ctx context.Context, jwtToken string, projectID uuid.UUID) (string, error) {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return "", err
	}
	project, err := s.ownedProject(ctx, claims.UserID, projectID)
	if err != nil {
		return "", err
	}
	issued, err := s.tasks.ListIssuedTicketNumbers(ctx, ticket.DerivePrefix(project.Name))
	if err != nil {
		return "", err
	}
	return ticket.Next(project.Name, issued), nil
}

// GetTask returns one task from an owned project.
func (s *Service) GetTask(ctx context.Context, jwtToken string, taskID uuid.UUID) (TaskPayload, error) {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return TaskPayload{}, err
	}
	task, err := s.ownedTask(ctx, claims.UserID, taskID)
	if err != nil {
		return TaskPayload{}, err
	}
	return toTaskPayload(task), nil
}

// ListTasks returns the tasks of an owned project.
func (s *Service) ListTasks(ctx context.Context, jwtToken string, projectID uuid.UUID) ([]TaskPayload, error) {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedProject(ctx, claims.UserID, projectID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	result := make([]TaskPayload, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, toTaskPayload(t))
	}
	return result, nil
}

// UpdateTask applies a partial update. The ticket number is immutable once
// assigned, so it is deliberately absent from UpdateTaskRequest.
func (s *Service) UpdateTask(ctx context.Context, jwtToken string, taskID uuid.UUID, req UpdateTaskRequest) (TaskPayload, error) {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return TaskPayload{}, err
	}
	task, err := s.ownedTask(ctx, claims.UserID, taskID)
	if err != nil {
		return TaskPayload{}, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return TaskPayload{}, fmt.Errorf("%w: title cannot be empty", domain.ErrInvalidInput)
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		if !domain.IsValidTaskStatus(*req.Status) {
			return TaskPayload{}, fmt.Errorf("%w: unknown task status %q", domain.ErrInvalidInput, *req.Status)
		}
		task.Status = *req.Status
	}
	if req.AssignedTo != nil {
		task.AssignedTo = req.AssignedTo
	}
	if req.StartDate != nil {
		task.StartDate = *req.StartDate
	}
	if req.DueDate != nil {
		task.DueDate = *req.DueDate
	}
	task.UpdatedAt = s.nowFn()

	updated, err := s.tasks.Update(ctx, task)
	if err != nil {
		return TaskPayload{}, err
	}
	return toTaskPayload(updated), nil
}

// DeleteTask removes a task; its ticket number stays burned in the
// allocation log so the sequence never restarts.
func (s *Service) DeleteTask(ctx context.Context, jwtToken string, taskID uuid.UUID) error {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return err
	}
	if _, err := s.ownedTask(ctx, claims.UserID, taskID); err != nil {
		return err
	}
	return s.tasks.Delete(ctx, taskID, s.nowFn())
}

func (s *Service) ownedTask(ctx context.Context, ownerID, taskID uuid.UUID) (domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.ownedProject(ctx, ownerID, task.ProjectID); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (s *Service) replayIdempotent(ctx context.Context, key string, req CreateTaskRequest) (TaskPayload, bool, error) {
	record, err := s.idempotency.Get(ctx, key)
	if err != nil || record == nil {
		return TaskPayload{}, false, nil
	}
	if record.RequestHash != hashRequest(req) {
		return TaskPayload{}, false, fmt.Errorf("%w: key reused with different payload", domain.ErrIdempotencyConflict)
	}
	if record.Status != "COMPLETED" || record.ExpiresAt.Before(s.nowFn()) {
		return TaskPayload{}, false, nil
	}
	var cached TaskPayload
	if json.Unmarshal(record.ResponseBody, &cached) != nil {
		return TaskPayload{}, false, nil
	}
	return cached, true, nil
}

func issuedContains(issued []string, number string) bool {
	for _, n := range issued {
		if n == number {
			return true
		}
	}
	return false
}

func toTaskPayload(t domain.Task) TaskPayload {
	return TaskPayload{
		ID:           t.TaskID,
		ProjectID:    t.ProjectID,
		TicketNumber: t.TicketNumber,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		AssignedTo:   t.AssignedTo,
		StartDate:    t.StartDate,
		DueDate:      t.DueDate,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
