package repository

import (
	"context"
	"database/sql"

	"gamedoc/internal/team/model"
	"gamedoc/pkg/apperr"
	"gamedoc/pkg/logger"
	"gamedoc/store"
)

type TeamRepository struct {
	DB store.DBTX
}

func NewTeamRepository(db store.DBTX) *TeamRepository {
	return &TeamRepository{DB: db}
}

func (r *TeamRepository) Create(ctx context.Context, t *model.Team) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO teams (id, name, description, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at`,
		t.ID, t.Name, t.Description, t.OwnerID,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to create team %s: %v", t.ID, err)
	}
	return apperr.FromDB(err, "create team")
}

func (r *TeamRepository) Get(ctx context.Context, teamID string) (*model.Team, error) {
	var t model.Team
	err := r.DB.QueryRowContext(ctx, "SELECT id, name, description, owner_id, created_at, updated_at FROM teams WHERE id = $1", teamID).
		Scan(&t.ID, &t.Name, &t.Description, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get team %s: %v", teamID, err)
		}
		return nil, apperr.FromDB(err, "get team")
	}
	return &t, nil
}

// ListForUser returns the teams userID belongs to, oldest membership first.
func (r *TeamRepository) ListForUser(ctx context.Context, userID string) ([]model.Team, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT t.id, t.name, t.description, t.owner_id, t.created_at, t.updated_at
		FROM teams t JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1
		ORDER BY m.joined_at ASC`, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list teams for user %s: %v", userID, err)
		return nil, apperr.FromDB(err, "list teams")
	}
	defer rows.Close()

	teams := []model.Team{}
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, apperr.FromDB(err, "scan team")
		}
		teams = append(teams, t)
	}
	return teams, apperr.FromDB(rows.Err(), "list teams")
}

// AddMember inserts a membership. An existing membership keeps its role.
func (r *TeamRepository) AddMember(ctx context.Context, m model.Member) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO team_members (team_id, user_id, role, invited_by, joined_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (team_id, user_id) DO NOTHING`,
		m.TeamID, m.UserID, m.Role, m.InvitedBy)
	if err != nil {
		logger.Sugar.Errorf("Failed to add member %s to team %s: %v", m.UserID, m.TeamID, err)
	}
	return apperr.FromDB(err, "add team member")
}

// MemberRole returns the caller's role in the team, ErrNotFound when absent.
func (r *TeamRepository) MemberRole(ctx context.Context, teamID, userID string) (string, error) {
	var role string
	err := r.DB.QueryRowContext(ctx, "SELECT role FROM team_members WHERE team_id = $1 AND user_id = $2", teamID, userID).Scan(&role)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to get role of %s in team %s: %v", userID, teamID, err)
	}
	return role, apperr.FromDB(err, "get team member")
}

func (r *TeamRepository) ListMembers(ctx context.Context, teamID string) ([]model.Member, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT m.team_id, m.user_id, u.email, m.role, m.invited_by, m.joined_at
		FROM team_members m JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1
		ORDER BY m.joined_at ASC`, teamID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list members of team %s: %v", teamID, err)
		return nil, apperr.FromDB(err, "list team members")
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Email, &m.Role, &m.InvitedBy, &m.JoinedAt); err != nil {
			return nil, apperr.FromDB(err, "scan team member")
		}
		members = append(members, m)
	}
	return members, apperr.FromDB(rows.Err(), "list team members")
}

// RemoveMember deletes a non-owner membership.
func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID string) (int64, error) {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM team_members WHERE team_id = $1 AND user_id = $2 AND role <> 'owner'", teamID, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to remove member %s from team %s: %v", userID, teamID, err)
		return 0, apperr.FromDB(err, "remove team member")
	}
	return result.RowsAffected()
}

func (r *TeamRepository) Delete(ctx context.Context, teamID, ownerID string) (int64, error) {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM teams WHERE id = $1 AND owner_id = $2", teamID, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete team %s: %v", teamID, err)
		return 0, apperr.FromDB(err, "delete team")
	}
	return result.RowsAffected()
}
