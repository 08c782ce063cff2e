package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"gamedoc/internal/note/model"
	"gamedoc/pkg/apperr"
	"gamedoc/pkg/logger"
	"gamedoc/store"
)

type NoteRepository struct {
	DB store.DBTX
}

func NewNoteRepository(db store.DBTX) *NoteRepository {
	return &NoteRepository{DB: db}
}

const noteColumns = `id, user_id, title, content, tags, game, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner, n *model.Note) error {
	var tags pq.StringArray
	if err := row.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &tags, &n.Game, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return err
	}
	n.Tags = []string(tags)
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return nil
}

func (r *NoteRepository) Create(ctx context.Context, n *model.Note) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO notes (id, user_id, title, content, tags, game, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`,
		n.ID, n.OwnerID, n.Title, n.Content, pq.Array(n.Tags), n.Game,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to create note for user %s: %v", n.OwnerID, err)
	}
	return apperr.FromDB(err, "create note")
}

func (r *NoteRepository) Get(ctx context.Context, noteID, ownerID string) (*model.Note, error) {
	var n model.Note
	err := scanNote(r.DB.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = $1 AND user_id = $2`, noteID, ownerID), &n)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get note %s: %v", noteID, err)
		}
		return nil, apperr.FromDB(err, "get note")
	}
	return &n, nil
}

// List returns the owner's notes, most recently updated first. A non-empty
// tag keeps only notes carrying it.
func (r *NoteRepository) List(ctx context.Context, ownerID, tag string) ([]model.Note, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE user_id = $1 AND ($2 = '' OR $2 = ANY(tags))
		ORDER BY updated_at DESC`, ownerID, tag)
	if err != nil {
		logger.Sugar.Errorf("Failed to list notes for user %s: %v", ownerID, err)
		return nil, apperr.FromDB(err, "list notes")
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		var n model.Note
		if err := scanNote(rows, &n); err != nil {
			return nil, apperr.FromDB(err, "scan note")
		}
		notes = append(notes, n)
	}
	return notes, apperr.FromDB(rows.Err(), "list notes")
}

// Update writes every field of n, scoped to its owner.
func (r *NoteRepository) Update(ctx context.Context, n *model.Note) error {
	err := r.DB.QueryRowContext(ctx, `
		UPDATE notes SET title = $1, content = $2, tags = $3, game = $4, updated_at = NOW()
		WHERE id = $5 AND user_id = $6
		RETURNING updated_at`,
		n.Title, n.Content, pq.Array(n.Tags), n.Game, n.ID, n.OwnerID,
	).Scan(&n.UpdatedAt)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to update note %s: %v", n.ID, err)
	}
	return apperr.FromDB(err, "update note")
}

func (r *NoteRepository) Delete(ctx context.Context, noteID, ownerID string) (int64, error) {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM notes WHERE id = $1 AND user_id = $2", noteID, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete note %s: %v", noteID, err)
		return 0, apperr.FromDB(err, "delete note")
	}
	return result.RowsAffected()
}
