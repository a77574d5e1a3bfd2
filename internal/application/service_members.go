package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/internal/domain"
)

// CreateTeamMember registers a collaborator under the caller's account.
// Members exist independently of projects and get attached later through
// AssignTeamMembers.
func (s *Service) CreateTeamMember(ctx context.Context, jwtToken string, req CreateTeamMemberRequest) (TeamMemberPayload, error) {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return TeamMemberPayload{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return TeamMemberPayload{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	email := ""
	if strings.TrimSpace(req.Email) != "" {
		email, err = normalizeEmail(req.Email)
		if err != nil {
			return TeamMemberPayload{}, err
		}
	}

	now := s.nowFn()
	member, err := s.members.Create(ctx, domain.TeamMember{
		OwnerID:   claims.UserID,
		Name:      name,
		Role:      strings.TrimSpace(req.Role),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return TeamMemberPayload{}, err
	}
	return toTeamMemberPayload(member), nil
}

// ListTeamMembers returns all collaborators owned by the caller.
func (s *Service) ListTeamMembers(ctx context.Context, jwtToken string) ([]TeamMemberPayload, error) {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return nil, err
	}
	members, err := s.members.ListByOwner(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	result := make([]TeamMemberPayload, 0, len(members))
	for _, m := range members {
		result = append(result, toTeamMemberPayload(m))
	}
	return result, nil
}

// AssignTeamMembers attaches members to an owned project. Every member must
// belong to the caller; a single foreign member rejects the whole batch so
// assignment stays all-or-nothing.
func (s *Service) AssignTeamMembers(ctx context.Context, jwtToken string, req AssignMembersRequest) error {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return err
	}
	if req.ProjectID == uuid.Nil {
		return fmt.Errorf("%w: project is required", domain.ErrInvalidInput)
	}
	if len(req.TeamMemberIDs) == 0 {
		return fmt.Errorf("%w: at least one team member is required", domain.ErrInvalidInput)
	}
	if _, err := s.ownedProject(ctx, claims.UserID, req.ProjectID); err != nil {
		return err
	}
	for _, memberID := range req.TeamMemberIDs {
		member, err := s.members.GetByID(ctx, memberID)
		if err != nil {
			return err
		}
		if member.OwnerID != claims.UserID {
			return fmt.Errorf("%w: team member %s", domain.ErrNotFound, memberID)
		}
	}
	return s.members.AssignToProject(ctx, req.ProjectID, req.TeamMemberIDs, s.nowFn())
}

// DeleteTeamMember removes a collaborator and its project assignments.
func (s *Service) DeleteTeamMember(ctx context.Context, jwtToken string, memberID uuid.UUID) error {
	claims, err := s.ValidateToken(ctx, jwtToken)
	if err != nil {
		return err
	}
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	if member.OwnerID != claims.UserID {
		return fmt.Errorf("%w: team member %s", domain.ErrNotFound, memberID)
	}
	return s.members.Delete(ctx, memberID)
}

func toTeamMemberPayload(m domain.TeamMember) TeamMemberPayload {
	return TeamMemberPayload{
		ID:        m.MemberID,
		Name:      m.Name,
		Role:      m.Role,
		Email:     m.Email,
		Projects:  m.Projects,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
