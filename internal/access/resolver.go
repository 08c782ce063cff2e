package access

import (
	"context"
	"errors"
	"fmt"

	"gamedoc/pkg/apperr"
)

// Owners identifies who owns a document directly or through its game.
// GameOwnerID is empty for documents without a game.
type Owners struct {
	DocumentOwnerID string
	GameOwnerID     string
}

// Lookup is the storage side of resolution. DocumentOwners returns
// apperr.ErrNotFound for unknown documents; CollaboratorLevel returns
// apperr.ErrNotFound when no grant exists for the pair.
type Lookup interface {
	DocumentOwners(ctx context.Context, documentID string) (Owners, error)
	CollaboratorLevel(ctx context.Context, documentID, userID string) (Level, error)
}

type Resolver struct {
	lookup Lookup
}

func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the effective level of userID on documentID. Ownership of
// the document or of its game wins, then an explicit collaborator grant.
// Invitations are never consulted.
func (r *Resolver) Resolve(ctx context.Context, userID, documentID string) (Level, error) {
	owners, err := r.lookup.DocumentOwners(ctx, documentID)
	if err != nil {
		return None, err
	}
	if userID != "" && (userID == owners.DocumentOwnerID || userID == owners.GameOwnerID) {
		return Owner, nil
	}

	level, err := r.lookup.CollaboratorLevel(ctx, documentID, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return None, nil
	}
	if err != nil {
		return None, err
	}
	return level, nil
}

// Require resolves access and fails unless it is at least min. A caller with
// no access at all gets ErrNotFound so document existence does not leak.
func (r *Resolver) Require(ctx context.Context, userID, documentID string, min Level) (Level, error) {
	level, err := r.Resolve(ctx, userID, documentID)
	if err != nil {
		return None, err
	}
	if level == None {
		return None, fmt.Errorf("document %s: %w", documentID, apperr.ErrNotFound)
	}
	if !level.AtLeast(min) {
		return level, fmt.Errorf("document %s needs %s, have %s: %w", documentID, min, level, apperr.ErrPermissionDenied)
	}
	return level, nil
}
