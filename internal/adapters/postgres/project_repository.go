package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/internal/domain"
	"gorm.io/gorm"
)

type projectRepository struct {
	db *gorm.DB
}

func (r *projectRepository) Create(ctx context.Context, project domain.Project) (domain.Project, error) {
	rec := toProjectModel(project)
	rec.ProjectID = uuid.Nil
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Project{}, err
	}
	return toDomainProject(rec), nil
}

func (r *projectRepository) GetByID(ctx context.Context, projectID uuid.UUID) (domain.Project, error) {
	var rec projectModel
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Project{}, domain.ErrNotFound
		}
		return domain.Project{}, err
	}
	return toDomainProject(rec), nil
}

func (r *projectRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Project, error) {
	var rows []projectModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Project, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainProject(row))
	}
	return result, nil
}

func (r *projectRepository) Update(ctx context.Context, project domain.Project) (domain.Project, error) {
	rec := toProjectModel(project)
	res := r.db.WithContext(ctx).
		Model(&projectModel{}).
		Where("project_id = ?", project.ProjectID).
		Updates(map[string]any{
			"name":           rec.Name,
			"description":    rec.Description,
			"client_name":    rec.ClientName,
			"client_email":   rec.ClientEmail,
			"client_phone":   rec.ClientPhone,
			"client_address": rec.ClientAddress,
			"start_date":     rec.StartDate,
			"end_date":       rec.EndDate,
			"status":         rec.Status,
			"budget":         rec.Budget,
			"priority":       rec.Priority,
			"notes":          rec.Notes,
			"updated_at":     rec.UpdatedAt,
		})
	if res.Error != nil {
		return domain.Project{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Project{}, domain.ErrNotFound
	}
	return r.GetByID(ctx, project.ProjectID)
}

// Delete removes a project and its tasks. Ticket allocations are left in
// place so the numbers stay burned.
func (r *projectRepository) Delete(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&projectMemberModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&taskModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("project_id = ?", projectID).Delete(&projectModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}
