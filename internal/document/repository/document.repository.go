package repository

import (
	"context"
	"database/sql"

	"gamedoc/internal/access"
	"gamedoc/internal/document/model"
	"gamedoc/pkg/apperr"
	"gamedoc/pkg/logger"
	"gamedoc/store"
)

type DocumentRepository struct {
	DB store.DBTX
}

func NewDocumentRepository(db store.DBTX) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

var _ access.Lookup = (*DocumentRepository)(nil)

const documentColumns = `id, title, game_id, user_id, is_gdd, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner, d *model.Document) error {
	return row.Scan(&d.ID, &d.Title, &d.GameID, &d.OwnerID, &d.IsGDD, &d.CreatedAt, &d.UpdatedAt)
}

func (r *DocumentRepository) Create(ctx context.Context, d *model.Document) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO documents (id, title, game_id, user_id, is_gdd, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at`,
		d.ID, d.Title, d.GameID, d.OwnerID, d.IsGDD,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to create document %s: %v", d.ID, err)
	}
	return apperr.FromDB(err, "create document")
}

func (r *DocumentRepository) Get(ctx context.Context, docID string) (*model.Document, error) {
	var d model.Document
	err := scanDocument(r.DB.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, docID), &d)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get doc %s: %v", docID, err)
		}
		return nil, apperr.FromDB(err, "get document")
	}
	return &d, nil
}

// GetPrimaryForGame returns the oldest design document of a game.
func (r *DocumentRepository) GetPrimaryForGame(ctx context.Context, gameID string) (*model.Document, error) {
	var d model.Document
	err := scanDocument(r.DB.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE game_id = $1 AND is_gdd
		ORDER BY created_at ASC
		LIMIT 1`, gameID), &d)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get design document for game %s: %v", gameID, err)
		}
		return nil, apperr.FromDB(err, "get game document")
	}
	return &d, nil
}

func (r *DocumentRepository) ListByGame(ctx context.Context, gameID string) ([]model.Document, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE game_id = $1
		ORDER BY created_at ASC`, gameID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list documents for game %s: %v", gameID, err)
		return nil, apperr.FromDB(err, "list game documents")
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		var d model.Document
		if err := scanDocument(rows, &d); err != nil {
			return nil, apperr.FromDB(err, "scan document")
		}
		docs = append(docs, d)
	}
	return docs, apperr.FromDB(rows.Err(), "list game documents")
}

// ListForUser returns documents the user owns, owns through a game, or
// collaborates on, most recently updated first.
func (r *DocumentRepository) ListForUser(ctx context.Context, userID string) ([]model.DocumentMetadata, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT d.id, d.title, d.game_id, d.user_id, d.is_gdd, d.created_at, d.updated_at,
			CASE WHEN d.user_id = $1 OR g.user_id = $1 THEN 'owner' ELSE COALESCE(c.permission, 'none') END
		FROM documents d
		LEFT JOIN games g ON g.id = d.game_id
		LEFT JOIN document_collaborators c ON c.document_id = d.id AND c.user_id = $1
		WHERE d.user_id = $1 OR g.user_id = $1 OR c.user_id IS NOT NULL
		ORDER BY d.updated_at DESC`, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to get documents for user %s: %v", userID, err)
		return nil, apperr.FromDB(err, "list documents")
	}
	defer rows.Close()

	docs := []model.DocumentMetadata{}
	for rows.Next() {
		var m model.DocumentMetadata
		var level string
		if err := rows.Scan(&m.ID, &m.Title, &m.GameID, &m.OwnerID, &m.IsGDD, &m.CreatedAt, &m.UpdatedAt, &level); err != nil {
			return nil, apperr.FromDB(err, "scan document")
		}
		m.Access, err = access.ParseLevel(level)
		if err != nil {
			logger.Sugar.Warnf("Document %s has unknown access %q for user %s", m.ID, level, userID)
		}
		docs = append(docs, m)
	}
	return docs, apperr.FromDB(rows.Err(), "list documents")
}

func (r *DocumentRepository) UpdateTitle(ctx context.Context, docID, title string) (int64, error) {
	result, err := r.DB.ExecContext(ctx, "UPDATE documents SET title = $1, updated_at = NOW() WHERE id = $2", title, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to update title for doc %s: %v", docID, err)
		return 0, apperr.FromDB(err, "update document title")
	}
	return result.RowsAffected()
}

// Delete removes a document; sections and collaborators go with it by cascade.
func (r *DocumentRepository) Delete(ctx context.Context, docID string) (int64, error) {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM documents WHERE id = $1", docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete doc %s: %v", docID, err)
		return 0, apperr.FromDB(err, "delete document")
	}
	return result.RowsAffected()
}

func (r *DocumentRepository) DocumentOwners(ctx context.Context, docID string) (access.Owners, error) {
	var o access.Owners
	err := r.DB.QueryRowContext(ctx, `
		SELECT d.user_id, COALESCE(g.user_id, '')
		FROM documents d LEFT JOIN games g ON g.id = d.game_id
		WHERE d.id = $1`, docID).Scan(&o.DocumentOwnerID, &o.GameOwnerID)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to get owners for doc %s: %v", docID, err)
	}
	return o, apperr.FromDB(err, "get document owners")
}

func (r *DocumentRepository) CollaboratorLevel(ctx context.Context, docID, userID string) (access.Level, error) {
	var permission string
	err := r.DB.QueryRowContext(ctx, "SELECT permission FROM document_collaborators WHERE document_id = $1 AND user_id = $2", docID, userID).Scan(&permission)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get collaborator role: %v", err)
		}
		return access.None, apperr.FromDB(err, "get collaborator")
	}
	return access.ParseLevel(permission)
}

func (r *DocumentRepository) GetCollaborator(ctx context.Context, docID, userID string) (*model.Collaborator, error) {
	c := model.Collaborator{DocumentID: docID, UserID: userID}
	var permission string
	var grantedBy sql.NullString
	err := r.DB.QueryRowContext(ctx, `
		SELECT permission, can_reshare, granted_by, granted_at
		FROM document_collaborators WHERE document_id = $1 AND user_id = $2`, docID, userID,
	).Scan(&permission, &c.CanReshare, &grantedBy, &c.GrantedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get collaborator %s on doc %s: %v", userID, docID, err)
		}
		return nil, apperr.FromDB(err, "get collaborator")
	}
	c.GrantedBy = grantedBy.String
	if c.Permission, err = access.ParseLevel(permission); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertCollaborator grants or replaces a user's permission on a document.
func (r *DocumentRepository) UpsertCollaborator(ctx context.Context, c model.Collaborator) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO document_collaborators (document_id, user_id, permission, can_reshare, granted_by, granted_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (document_id, user_id) DO UPDATE
		SET permission = EXCLUDED.permission, can_reshare = EXCLUDED.can_reshare,
			granted_by = EXCLUDED.granted_by, granted_at = EXCLUDED.granted_at`,
		c.DocumentID, c.UserID, c.Permission.String(), c.CanReshare, nullable(c.GrantedBy))
	if err != nil {
		logger.Sugar.Errorf("Failed to add collaborator %s to doc %s: %v", c.UserID, c.DocumentID, err)
	}
	return apperr.FromDB(err, "upsert collaborator")
}

func (r *DocumentRepository) RemoveCollaborator(ctx context.Context, docID, userID string) (int64, error) {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM document_collaborators WHERE document_id = $1 AND user_id = $2", docID, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to remove collaborator %s from doc %s: %v", userID, docID, err)
		return 0, apperr.FromDB(err, "remove collaborator")
	}
	return result.RowsAffected()
}

func (r *DocumentRepository) GetDocumentMembers(ctx context.Context, docID string) ([]model.MemberResponse, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT u.id, u.email, 'owner' AS role FROM documents d JOIN users u ON d.user_id = u.id WHERE d.id = $1
		UNION ALL
		SELECT u.id, u.email, c.permission FROM document_collaborators c JOIN users u ON c.user_id = u.id WHERE c.document_id = $1`, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to get document members for doc %s: %v", docID, err)
		return nil, apperr.FromDB(err, "list members")
	}
	defer rows.Close()

	members := []model.MemberResponse{}
	for rows.Next() {
		var m model.MemberResponse
		var role string
		if err := rows.Scan(&m.UserID, &m.Email, &role); err != nil {
			return nil, apperr.FromDB(err, "scan member")
		}
		if m.Role, err = access.ParseLevel(role); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, apperr.FromDB(rows.Err(), "list members")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
