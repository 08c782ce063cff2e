package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gamedoc/internal/access"
	"gamedoc/internal/invitation/model"
	"gamedoc/pkg/apperr"
	"gamedoc/pkg/logger"
	"gamedoc/store"
)

type InvitationRepository struct {
	DB store.DBTX
}

func NewInvitationRepository(db store.DBTX) *InvitationRepository {
	return &InvitationRepository{DB: db}
}

const invitationColumns = `id, document_id, team_id, game_id, inviter_id, invitee_email, permission, can_reshare,
	status, token, expires_at, responded_at, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row scanner, inv *model.Invitation) error {
	var docID, teamID, gameID sql.NullString
	var permission, status string
	if err := row.Scan(&inv.ID, &docID, &teamID, &gameID, &inv.InviterID, &inv.InviteeEmail, &permission, &inv.CanReshare,
		&status, &inv.Token, &inv.ExpiresAt, &inv.RespondedAt, &inv.CreatedAt); err != nil {
		return err
	}
	target, err := model.TargetFromColumns(docID, teamID, gameID)
	if err != nil {
		return err
	}
	inv.Target = target
	inv.Status = model.Status(status)
	inv.Permission, err = access.ParseLevel(permission)
	return err
}

func (r *InvitationRepository) Create(ctx context.Context, inv *model.Invitation) error {
	docID, teamID, gameID := inv.Target.Columns()
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO invitations (id, document_id, team_id, game_id, inviter_id, invitee_email, permission, can_reshare, status, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING created_at`,
		inv.ID, docID, teamID, gameID, inv.InviterID, inv.InviteeEmail, inv.Permission.String(), inv.CanReshare,
		string(inv.Status), inv.Token, inv.ExpiresAt,
	).Scan(&inv.CreatedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to create invitation for %s on %s %s: %v", inv.InviteeEmail, inv.Target.Kind, inv.Target.ID, err)
	}
	return apperr.FromDB(err, "create invitation")
}

func (r *InvitationRepository) Get(ctx context.Context, id string) (*model.Invitation, error) {
	return r.getBy(ctx, "id", id)
}

func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (*model.Invitation, error) {
	return r.getBy(ctx, "token", token)
}

func (r *InvitationRepository) getBy(ctx context.Context, column, value string) (*model.Invitation, error) {
	var inv model.Invitation
	err := scanInvitation(r.DB.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE `+column+` = $1`, value), &inv)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get invitation by %s: %v", column, err)
		}
		return nil, apperr.FromDB(err, "get invitation")
	}
	return &inv, nil
}

// ListForEmail returns the stored-pending invitations addressed to email,
// newest first. Expiry is left to the caller.
func (r *InvitationRepository) ListForEmail(ctx context.Context, email string) ([]model.Invitation, error) {
	return r.list(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE lower(invitee_email) = lower($1) AND status = 'pending'
		ORDER BY created_at DESC`, email)
}

// ListForTarget returns every invitation sent for target, newest first.
func (r *InvitationRepository) ListForTarget(ctx context.Context, target model.Target) ([]model.Invitation, error) {
	var column string
	switch target.Kind {
	case model.TargetDocument:
		column = "document_id"
	case model.TargetTeam:
		column = "team_id"
	case model.TargetGame:
		column = "game_id"
	default:
		return nil, fmt.Errorf("list invitations: %w", apperr.ErrValidation)
	}
	return r.list(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE `+column+` = $1
		ORDER BY created_at DESC`, target.ID)
}

func (r *InvitationRepository) list(ctx context.Context, query string, arg string) ([]model.Invitation, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		logger.Sugar.Errorf("Failed to list invitations: %v", err)
		return nil, apperr.FromDB(err, "list invitations")
	}
	defer rows.Close()

	invitations := []model.Invitation{}
	for rows.Next() {
		var inv model.Invitation
		if err := scanInvitation(rows, &inv); err != nil {
			return nil, apperr.FromDB(err, "scan invitation")
		}
		invitations = append(invitations, inv)
	}
	return invitations, apperr.FromDB(rows.Err(), "list invitations")
}

// MarkResponded moves a pending invitation to status. It reports 0 rows when
// the invitation was no longer pending.
func (r *InvitationRepository) MarkResponded(ctx context.Context, id string, status model.Status, at time.Time) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE invitations SET status = $1, responded_at = $2
		WHERE id = $3 AND status = 'pending'`, string(status), at, id)
	if err != nil {
		logger.Sugar.Errorf("Failed to mark invitation %s %s: %v", id, status, err)
		return 0, apperr.FromDB(err, "respond to invitation")
	}
	return result.RowsAffected()
}

// MarkExpired persists a lazily detected expiry.
func (r *InvitationRepository) MarkExpired(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE invitations SET status = 'expired' WHERE id = $1 AND status = 'pending'", id)
	if err != nil {
		logger.Sugar.Errorf("Failed to expire invitation %s: %v", id, err)
	}
	return apperr.FromDB(err, "expire invitation")
}

// DeletePending removes a pending invitation sent by inviterID.
func (r *InvitationRepository) DeletePending(ctx context.Context, id, inviterID string) (int64, error) {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM invitations WHERE id = $1 AND inviter_id = $2 AND status = 'pending'", id, inviterID)
	if err != nil {
		logger.Sugar.Errorf("Failed to revoke invitation %s: %v", id, err)
		return 0, apperr.FromDB(err, "revoke invitation")
	}
	return result.RowsAffected()
}
