package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/internal/domain"
	"gorm.io/gorm"
)

type taskRepository struct {
	db *gorm.DB
}

// Create inserts the task together with its allocation-log row. The primary
// key on ticket_allocations is what makes a number unique for all time; a
// duplicate insert surfaces as domain.ErrTicketCollision so the caller can
// re-derive against the refreshed issued set.
func (r *taskRepository) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	rec := taskModel{
		ProjectID:    task.ProjectID,
		TicketNumber: task.TicketNumber,
		Title:        task.Title,
		Description:  task.Description,
		Status:       string(task.Status),
		AssignedTo:   task.AssignedTo,
		StartDate:    nullableTime(task.StartDate),
		DueDate:      nullableTime(task.DueDate),
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocation := ticketAllocationModel{
			TicketNumber: task.TicketNumber,
			Prefix:       ticketPrefixOf(task.TicketNumber),
			ProjectID:    task.ProjectID,
			AllocatedAt:  task.CreatedAt,
		}
		if err := tx.Create(&allocation).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrTicketCollision, task.TicketNumber)
			}
			return err
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrTicketCollision, task.TicketNumber)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return toDomainTask(rec), nil
}

func (r *taskRepository) GetByID(ctx context.Context, taskID uuid.UUID) (domain.Task, error) {
	var rec taskModel
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Task{}, domain.ErrNotFound
		}
		return domain.Task{}, err
	}
	return toDomainTask(rec), nil
}

func (r *taskRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Task, error) {
	var rows []taskModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("ticket_number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainTask(row))
	}
	return result, nil
}

// ListIssuedTicketNumbers reads the allocation log, not the tasks table, so
// numbers of deleted tasks stay visible to the allocator.
func (r *taskRepository) ListIssuedTicketNumbers(ctx context.Context, prefix string) ([]string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&ticketAllocationModel{}).
		Where("prefix = ?", prefix).
		Pluck("ticket_number", &numbers).Error; err != nil {
		return nil, err
	}
	return numbers, nil
}

func (r *taskRepository) Update(ctx context.Context, task domain.Task) (domain.Task, error) {
	res := r.db.WithContext(ctx).
		Model(&taskModel{}).
		Where("task_id = ?", task.TaskID).
		Updates(map[string]any{
			"title":       task.Title,
			"description": task.Description,
			"status":      string(task.Status),
			"assigned_to": task.AssignedTo,
			"start_date":  nullableTime(task.StartDate),
			"due_date":    nullableTime(task.DueDate),
			"updated_at":  task.UpdatedAt,
		})
	if res.Error != nil {
		return domain.Task{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Task{}, domain.ErrNotFound
	}
	return r.GetByID(ctx, task.TaskID)
}

// Delete removes the task row and stamps its allocation as released. The
// allocation row survives, which is what stops the sequence from restarting.
func (r *taskRepository) Delete(ctx context.Context, taskID uuid.UUID, deletedAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec taskModel
		if err := tx.Where("task_id = ?", taskID).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if err := tx.Model(&ticketAllocationModel{}).
			Where("ticket_number = ?", rec.TicketNumber).
			Update("released_at", deletedAt).Error; err != nil {
			return err
		}
		return tx.Where("task_id = ?", taskID).Delete(&taskModel{}).Error
	})
}

func ticketPrefixOf(ticketNumber string) string {
	if idx := strings.LastIndex(ticketNumber, "-"); idx > 0 {
		return ticketNumber[:idx]
	}
	return ticketNumber
}
