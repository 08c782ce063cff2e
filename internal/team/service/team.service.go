package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gamedoc/internal/team/model"
	"gamedoc/internal/team/repository"
	"gamedoc/pkg/apperr"
	"gamedoc/store"
)

type TeamService struct {
	DB   *sql.DB
	Repo *repository.TeamRepository
}

func NewTeamService(db *sql.DB) *TeamService {
	return &TeamService{DB: db, Repo: repository.NewTeamRepository(db)}
}

// CreateTeam stores the team and makes its creator the owner member.
func (s *TeamService) CreateTeam(ctx context.Context, userID string, req model.CreateTeamRequest) (*model.Team, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	team := &model.Team{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		OwnerID:     userID,
	}
	err := store.WithTx(ctx, s.DB, func(ctx context.Context, tx store.DBTX) error {
		repo := repository.NewTeamRepository(tx)
		if err := repo.Create(ctx, team); err != nil {
			return err
		}
		return repo.AddMember(ctx, model.Member{TeamID: team.ID, UserID: userID, Role: model.RoleOwner})
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (s *TeamService) ListTeams(ctx context.Context, userID string) ([]model.Team, error) {
	return s.Repo.ListForUser(ctx, userID)
}

// GetTeam is visible to members only; others get ErrNotFound.
func (s *TeamService) GetTeam(ctx context.Context, userID, teamID string) (*model.TeamDetail, error) {
	if _, err := s.Repo.MemberRole(ctx, teamID, userID); err != nil {
		return nil, err
	}
	team, err := s.Repo.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	members, err := s.Repo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &model.TeamDetail{Team: *team, Members: members}, nil
}

func (s *TeamService) ListMembers(ctx context.Context, userID, teamID string) ([]model.Member, error) {
	if _, err := s.Repo.MemberRole(ctx, teamID, userID); err != nil {
		return nil, err
	}
	return s.Repo.ListMembers(ctx, teamID)
}

// RemoveMember lets the owner remove anyone but themselves, and a member
// leave on their own.
func (s *TeamService) RemoveMember(ctx context.Context, userID, teamID, targetUserID string) error {
	role, err := s.Repo.MemberRole(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if role != model.RoleOwner && userID != targetUserID {
		return fmt.Errorf("remove member from team %s: %w", teamID, apperr.ErrPermissionDenied)
	}

	targetRole, err := s.Repo.MemberRole(ctx, teamID, targetUserID)
	if err != nil {
		return err
	}
	if targetRole == model.RoleOwner {
		return fmt.Errorf("the team owner cannot be removed: %w", apperr.ErrInvalidState)
	}

	n, err := s.Repo.RemoveMember(ctx, teamID, targetUserID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("member %s of team %s: %w", targetUserID, teamID, apperr.ErrNotFound)
	}
	return nil
}

// DeleteTeam removes the team, its memberships and pending invitations.
func (s *TeamService) DeleteTeam(ctx context.Context, userID, teamID string) error {
	role, err := s.Repo.MemberRole(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if role != model.RoleOwner {
		return fmt.Errorf("delete team %s: %w", teamID, apperr.ErrPermissionDenied)
	}
	n, err := s.Repo.Delete(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("team %s: %w", teamID, apperr.ErrNotFound)
	}
	return nil
}
