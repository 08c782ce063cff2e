package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"gamedoc/internal/access"
	docmodel "gamedoc/internal/document/model"
	docrepo "gamedoc/internal/document/repository"
	gamerepo "gamedoc/internal/game/repository"
	"gamedoc/internal/invitation/model"
	"gamedoc/internal/invitation/repository"
	teammodel "gamedoc/internal/team/model"
	teamrepo "gamedoc/internal/team/repository"
	"gamedoc/pkg/apperr"
	"gamedoc/pkg/logger"
	"gamedoc/store"
)

type InvitationService struct {
	DB     *sql.DB
	Repo   *repository.InvitationRepository
	Docs   *docrepo.DocumentRepository
	Teams  *teamrepo.TeamRepository
	Games  *gamerepo.GameRepository
	Access *access.Resolver

	// TTL of new invitations; zero means they never expire.
	TTL time.Duration
	Now func() time.Time
}

func NewInvitationService(db *sql.DB, ttl time.Duration) *InvitationService {
	docs := docrepo.NewDocumentRepository(db)
	return &InvitationService{
		DB:     db,
		Repo:   repository.NewInvitationRepository(db),
		Docs:   docs,
		Teams:  teamrepo.NewTeamRepository(db),
		Games:  gamerepo.NewGameRepository(db),
		Access: access.NewResolver(docs),
		TTL:    ttl,
		Now:    time.Now,
	}
}

// Invite creates a pending invitation for email. Document owners may invite
// at any level; a collaborator needs can_reshare and at least the level they
// hand out. Teams and games accept invitations from their owner only.
func (s *InvitationService) Invite(ctx context.Context, inviterID string, req model.InviteRequest) (*model.Invitation, error) {
	if err := req.Target.Validate(); err != nil {
		return nil, err
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return nil, apperr.Validation("a valid email is required")
	}
	if req.Permission == access.None {
		req.Permission = access.Viewer
	}
	if !req.Permission.Grantable() {
		return nil, apperr.Validation("permission must be viewer or editor")
	}

	if err := s.authorize(ctx, inviterID, req.Target, req.Permission); err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	inv := &model.Invitation{
		ID:           uuid.NewString(),
		Target:       req.Target,
		InviterID:    inviterID,
		InviteeEmail: strings.ToLower(addr.Address),
		Permission:   req.Permission,
		CanReshare:   req.CanReshare,
		Status:       model.StatusPending,
		Token:        token,
	}
	if s.TTL > 0 {
		exp := s.Now().Add(s.TTL)
		inv.ExpiresAt = &exp
	}

	if err := s.Repo.Create(ctx, inv); err != nil {
		return nil, err
	}
	logger.Sugar.Infof("User %s invited %s to %s %s as %s", inviterID, inv.InviteeEmail, inv.Target.Kind, inv.Target.ID, inv.Permission)
	return inv, nil
}

func (s *InvitationService) authorize(ctx context.Context, userID string, target model.Target, level access.Level) error {
	switch target.Kind {
	case model.TargetDocument:
		have, err := s.Access.Require(ctx, userID, target.ID, access.Viewer)
		if err != nil {
			return err
		}
		if have == access.Owner {
			return nil
		}
		grant, err := s.Docs.GetCollaborator(ctx, target.ID, userID)
		if err != nil {
			return err
		}
		if !grant.CanReshare || !grant.Permission.AtLeast(level) {
			return fmt.Errorf("invite to document %s as %s: %w", target.ID, level, apperr.ErrPermissionDenied)
		}
		return nil

	case model.TargetTeam:
		role, err := s.Teams.MemberRole(ctx, target.ID, userID)
		if err != nil {
			return err
		}
		if role != teammodel.RoleOwner {
			return fmt.Errorf("invite to team %s: %w", target.ID, apperr.ErrPermissionDenied)
		}
		return nil

	case model.TargetGame:
		_, err := s.Games.Get(ctx, target.ID, userID)
		return err
	}
	return target.Validate()
}

// Accept grants the invitation's access to userID. The caller's email must
// match the invitee; anyone else sees ErrNotFound.
func (s *InvitationService) Accept(ctx context.Context, userID, email, invitationID string) (*model.Invitation, error) {
	inv, err := s.addressedTo(ctx, email, invitationID)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, inv, userID, model.StatusAccepted)
}

// AcceptByToken accepts through a shared link. Holding the token is enough.
func (s *InvitationService) AcceptByToken(ctx context.Context, userID, token string) (*model.Invitation, error) {
	if token == "" {
		return nil, apperr.Validation("token is required")
	}
	inv, err := s.Repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, inv, userID, model.StatusAccepted)
}

func (s *InvitationService) Decline(ctx context.Context, userID, email, invitationID string) (*model.Invitation, error) {
	inv, err := s.addressedTo(ctx, email, invitationID)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, inv, userID, model.StatusDeclined)
}

// ListPending returns invitations for email that can still be answered.
func (s *InvitationService) ListPending(ctx context.Context, email string) ([]model.Invitation, error) {
	if email == "" {
		return []model.Invitation{}, nil
	}
	all, err := s.Repo.ListForEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	pending := make([]model.Invitation, 0, len(all))
	for _, inv := range all {
		if inv.EffectiveStatus(now) == model.StatusPending {
			pending = append(pending, inv)
		}
	}
	return pending, nil
}

// ListSent returns the invitations for a target to whoever may invite to it.
func (s *InvitationService) ListSent(ctx context.Context, userID string, target model.Target) ([]model.Invitation, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, target, access.Viewer); err != nil {
		return nil, err
	}
	invitations, err := s.Repo.ListForTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	for i := range invitations {
		invitations[i].Status = invitations[i].EffectiveStatus(now)
	}
	return invitations, nil
}

// Revoke deletes a pending invitation; only its inviter may.
func (s *InvitationService) Revoke(ctx context.Context, userID, invitationID string) error {
	n, err := s.Repo.DeletePending(ctx, invitationID, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("pending invitation %s: %w", invitationID, apperr.ErrNotFound)
	}
	return nil
}

func (s *InvitationService) addressedTo(ctx context.Context, email, invitationID string) (*model.Invitation, error) {
	inv, err := s.Repo.Get(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if email == "" || !strings.EqualFold(inv.InviteeEmail, strings.TrimSpace(email)) {
		return nil, fmt.Errorf("invitation %s: %w", invitationID, apperr.ErrNotFound)
	}
	return inv, nil
}

// respond moves inv out of pending. Acceptance writes the grant in the same
// transaction as the status change.
func (s *InvitationService) respond(ctx context.Context, inv *model.Invitation, userID string, status model.Status) (*model.Invitation, error) {
	now := s.Now()
	if err := inv.CheckRespondable(now); err != nil {
		if errors.Is(err, apperr.ErrExpired) && inv.Status == model.StatusPending {
			if markErr := s.Repo.MarkExpired(ctx, inv.ID); markErr != nil {
				logger.Sugar.Warnf("Could not persist expiry of invitation %s: %v", inv.ID, markErr)
			}
		}
		return nil, err
	}

	err := store.WithTx(ctx, s.DB, func(ctx context.Context, tx store.DBTX) error {
		n, err := repository.NewInvitationRepository(tx).MarkResponded(ctx, inv.ID, status, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("invitation %s was answered concurrently: %w", inv.ID, apperr.ErrInvalidState)
		}
		if status == model.StatusAccepted {
			return grant(ctx, tx, inv, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	inv.Status = status
	inv.RespondedAt = &now
	return inv, nil
}

func grant(ctx context.Context, tx store.DBTX, inv *model.Invitation, userID string) error {
	docs := docrepo.NewDocumentRepository(tx)
	collaborator := func(docID string) docmodel.Collaborator {
		return docmodel.Collaborator{
			DocumentID: docID,
			UserID:     userID,
			Permission: inv.Permission,
			CanReshare: inv.CanReshare,
			GrantedBy:  inv.InviterID,
		}
	}

	switch inv.Target.Kind {
	case model.TargetDocument:
		return docs.UpsertCollaborator(ctx, collaborator(inv.Target.ID))

	case model.TargetTeam:
		inviter := inv.InviterID
		return teamrepo.NewTeamRepository(tx).AddMember(ctx, teammodel.Member{
			TeamID:    inv.Target.ID,
			UserID:    userID,
			Role:      teammodel.RoleMember,
			InvitedBy: &inviter,
		})

	case model.TargetGame:
		gameDocs, err := docs.ListByGame(ctx, inv.Target.ID)
		if err != nil {
			return err
		}
		for _, d := range gameDocs {
			if err := docs.UpsertCollaborator(ctx, collaborator(d.ID)); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("grant %s: %w", inv.Target.Kind, apperr.ErrValidation)
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
