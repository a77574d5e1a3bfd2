package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type teamMemberRepository struct {
	db *gorm.DB
}

func (r *teamMemberRepository) Create(ctx context.Context, member domain.TeamMember) (domain.TeamMember, error) {
	rec := teamMemberModel{
		OwnerID:   member.OwnerID,
		Name:      member.Name,
		Role:      member.Role,
		Email:     member.Email,
		CreatedAt: member.CreatedAt,
		UpdatedAt: member.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.TeamMember{}, err
	}
	return toDomainTeamMember(rec), nil
}

func (r *teamMemberRepository) GetByID(ctx context.Context, memberID uuid.UUID) (domain.TeamMember, error) {
	var rec teamMemberModel
	if err := r.db.WithContext(ctx).Where("member_id = ?", memberID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TeamMember{}, domain.ErrNotFound
		}
		return domain.TeamMember{}, err
	}
	member := toDomainTeamMember(rec)
	projects, err := r.loadProjects(ctx, memberID)
	if err != nil {
		return domain.TeamMember{}, err
	}
	member.Projects = projects
	return member, nil
}

func (r *teamMemberRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.TeamMember, error) {
	var rows []teamMemberModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.TeamMember, 0, len(rows))
	for _, row := range rows {
		member := toDomainTeamMember(row)
		projects, err := r.loadProjects(ctx, row.MemberID)
		if err != nil {
			return nil, err
		}
		member.Projects = projects
		result = append(result, member)
	}
	return result, nil
}

func (r *teamMemberRepository) AssignToProject(ctx context.Context, projectID uuid.UUID, memberIDs []uuid.UUID, assignedAt time.Time) error {
	rows := make([]projectMemberModel, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		rows = append(rows, projectMemberModel{
			ProjectID:  projectID,
			MemberID:   memberID,
			AssignedAt: assignedAt,
		})
	}
	// Re-assigning an already assigned member is a no-op.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *teamMemberRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.TeamMember, error) {
	var rows []teamMemberModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN project_members pm ON pm.member_id = team_members.member_id").
		Where("pm.project_id = ?", projectID).
		Order("team_members.created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.TeamMember, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainTeamMember(row))
	}
	return result, nil
}

func (r *teamMemberRepository) Delete(ctx context.Context, memberID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("member_id = ?", memberID).Delete(&projectMemberModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("member_id = ?", memberID).Delete(&teamMemberModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *teamMemberRepository) loadProjects(ctx context.Context, memberID uuid.UUID) ([]uuid.UUID, error) {
	var projects []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&projectMemberModel{}).
		Where("member_id = ?", memberID).
		Pluck("project_id", &projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}
