package model

import (
	"database/sql"
	"fmt"
	"time"

	"gamedoc/internal/access"
	"gamedoc/pkg/apperr"
)

type TargetKind string

const (
	TargetDocument TargetKind = "document"
	TargetTeam     TargetKind = "team"
	TargetGame     TargetKind = "game"
)

// Target is the one thing an invitation grants access to.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

func DocumentTarget(id string) Target { return Target{Kind: TargetDocument, ID: id} }
func TeamTarget(id string) Target     { return Target{Kind: TargetTeam, ID: id} }
func GameTarget(id string) Target     { return Target{Kind: TargetGame, ID: id} }

func (t Target) Validate() error {
	switch t.Kind {
	case TargetDocument, TargetTeam, TargetGame:
	default:
		return apperr.Validation(fmt.Sprintf("unknown invitation target %q", t.Kind))
	}
	if t.ID == "" {
		return apperr.Validation("invitation target id is required")
	}
	return nil
}

// Columns spreads the target over the document_id, team_id and game_id
// columns; exactly one is non-nil.
func (t Target) Columns() (documentID, teamID, gameID any) {
	switch t.Kind {
	case TargetDocument:
		return t.ID, nil, nil
	case TargetTeam:
		return nil, t.ID, nil
	case TargetGame:
		return nil, nil, t.ID
	}
	return nil, nil, nil
}

// TargetFromColumns is the inverse of Columns.
func TargetFromColumns(documentID, teamID, gameID sql.NullString) (Target, error) {
	var targets []Target
	if documentID.Valid {
		targets = append(targets, DocumentTarget(documentID.String))
	}
	if teamID.Valid {
		targets = append(targets, TeamTarget(teamID.String))
	}
	if gameID.Valid {
		targets = append(targets, GameTarget(gameID.String))
	}
	if len(targets) != 1 {
		return Target{}, fmt.Errorf("invitation has %d targets: %w", len(targets), apperr.ErrStorage)
	}
	return targets[0], nil
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusExpired  Status = "expired"
)

type Invitation struct {
	ID           string       `json:"id"`
	Target       Target       `json:"target"`
	InviterID    string       `json:"inviter_id"`
	InviteeEmail string       `json:"invitee_email"`
	Permission   access.Level `json:"permission"`
	CanReshare   bool         `json:"can_reshare"`
	Status       Status       `json:"status"`
	Token        string       `json:"token,omitempty"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	RespondedAt  *time.Time   `json:"responded_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// EffectiveStatus is the stored status with lazy expiry applied: a pending
// invitation at or past its expiry reads as expired.
func (i *Invitation) EffectiveStatus(now time.Time) Status {
	if i.Status == StatusPending && i.ExpiresAt != nil && !now.Before(*i.ExpiresAt) {
		return StatusExpired
	}
	return i.Status
}

// CheckRespondable fails with ErrExpired or ErrInvalidState unless the
// invitation can still be accepted or declined.
func (i *Invitation) CheckRespondable(now time.Time) error {
	switch i.EffectiveStatus(now) {
	case StatusPending:
		return nil
	case StatusExpired:
		return fmt.Errorf("invitation %s: %w", i.ID, apperr.ErrExpired)
	default:
		return fmt.Errorf("invitation %s is %s: %w", i.ID, i.Status, apperr.ErrInvalidState)
	}
}

type InviteRequest struct {
	Target     Target       `json:"target"`
	Email      string       `json:"email"`
	Permission access.Level `json:"permission"`
	CanReshare bool         `json:"can_reshare"`
}
