package repository

import (
	"context"
	"database/sql"
	"fmt"

	"gamedoc/internal/document/model"
	"gamedoc/pkg/apperr"
	"gamedoc/pkg/logger"
)

const sectionColumns = `id, document_id, title, content, order_index, created_at, updated_at`

func scanSection(row scanner, s *model.Section) error {
	return row.Scan(&s.ID, &s.DocumentID, &s.Title, &s.Content, &s.OrderIndex, &s.CreatedAt, &s.UpdatedAt)
}

// ListSections returns a document's sections by (order_index, created_at).
func (r *DocumentRepository) ListSections(ctx context.Context, docID string) ([]model.Section, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+sectionColumns+` FROM document_sections
		WHERE document_id = $1
		ORDER BY order_index ASC, created_at ASC, id ASC`, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to get sections for doc %s: %v", docID, err)
		return nil, apperr.FromDB(err, "list sections")
	}
	defer rows.Close()

	sections := []model.Section{}
	for rows.Next() {
		var s model.Section
		if err := scanSection(rows, &s); err != nil {
			return nil, apperr.FromDB(err, "scan section")
		}
		sections = append(sections, s)
	}
	return sections, apperr.FromDB(rows.Err(), "list sections")
}

func (r *DocumentRepository) GetSection(ctx context.Context, sectionID string) (*model.Section, error) {
	var s model.Section
	err := scanSection(r.DB.QueryRowContext(ctx, `SELECT `+sectionColumns+` FROM document_sections WHERE id = $1`, sectionID), &s)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get section %s: %v", sectionID, err)
		}
		return nil, apperr.FromDB(err, "get section")
	}
	return &s, nil
}

// NextOrderIndex reserves the index for a section appended to docID: one past
// the highest index ever handed out or currently stored. The single UPDATE
// locks the document row, so concurrent appends get distinct indices.
func (r *DocumentRepository) NextOrderIndex(ctx context.Context, docID string) (int, error) {
	var next int
	err := r.DB.QueryRowContext(ctx, `
		UPDATE documents
		SET next_section_index = GREATEST(next_section_index,
			(SELECT COALESCE(MAX(order_index) + 1, 0) FROM document_sections WHERE document_id = $1)) + 1
		WHERE id = $1
		RETURNING next_section_index - 1`, docID).Scan(&next)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to reserve section index for doc %s: %v", docID, err)
	}
	return next, apperr.FromDB(err, "reserve section index")
}

// ClaimOrderIndex records that idx is in use in docID, so later appends are
// placed after it even once it is deleted.
func (r *DocumentRepository) ClaimOrderIndex(ctx context.Context, docID string, idx int) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE documents SET next_section_index = GREATEST(next_section_index, $2 + 1)
		WHERE id = $1`, docID, idx)
	if err != nil {
		logger.Sugar.Errorf("Failed to claim section index %d for doc %s: %v", idx, docID, err)
	}
	return apperr.FromDB(err, "claim section index")
}

// CreateSection stamps clock_timestamp() so sections inserted in one
// transaction still carry distinct, increasing creation times.
func (r *DocumentRepository) CreateSection(ctx context.Context, s *model.Section) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO document_sections (id, document_id, title, content, order_index, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, clock_timestamp(), clock_timestamp())
		RETURNING created_at, updated_at`,
		s.ID, s.DocumentID, s.Title, s.Content, s.OrderIndex,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to create section in doc %s: %v", s.DocumentID, err)
	}
	return apperr.FromDB(err, "create section")
}

// InsertSections inserts sections of one document in slice order with their
// own indices and claims the highest of them. Run it inside a transaction to
// make the batch atomic.
func (r *DocumentRepository) InsertSections(ctx context.Context, sections []model.Section) error {
	if len(sections) == 0 {
		return nil
	}
	highest := sections[0].OrderIndex
	for i := range sections {
		if err := r.CreateSection(ctx, &sections[i]); err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
		highest = max(highest, sections[i].OrderIndex)
	}
	return r.ClaimOrderIndex(ctx, sections[0].DocumentID, highest)
}

type SectionPatch struct {
	Title      *string
	Content    *model.Node
	OrderIndex *int
}

// UpdateSection applies the non-nil fields of patch and returns the row.
func (r *DocumentRepository) UpdateSection(ctx context.Context, sectionID string, patch SectionPatch) (*model.Section, error) {
	var content any
	if patch.Content != nil {
		content = *patch.Content
	}
	var s model.Section
	err := scanSection(r.DB.QueryRowContext(ctx, `
		UPDATE document_sections
		SET title = COALESCE($2, title),
			content = COALESCE($3::jsonb, content),
			order_index = COALESCE($4, order_index),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+sectionColumns,
		sectionID, patch.Title, content, patch.OrderIndex), &s)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to update section %s: %v", sectionID, err)
		}
		return nil, apperr.FromDB(err, "update section")
	}
	return &s, nil
}

// SaveSectionContent persists live-edited content of a section of docID. It
// reports ErrNotFound when the section was deleted meanwhile or belongs to
// another document.
func (r *DocumentRepository) SaveSectionContent(ctx context.Context, docID, sectionID string, content model.Node) error {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE document_sections SET content = $1, updated_at = NOW()
		WHERE id = $2 AND document_id = $3`, content, sectionID, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to save content for section %s: %v", sectionID, err)
		return apperr.FromDB(err, "save section content")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return apperr.FromDB(err, "save section content")
	}
	if n == 0 {
		return fmt.Errorf("section %s: %w", sectionID, apperr.ErrNotFound)
	}
	return nil
}

// DeleteSection removes one section and returns its document id. Siblings keep
// their indices.
func (r *DocumentRepository) DeleteSection(ctx context.Context, sectionID string) (string, error) {
	var docID string
	err := r.DB.QueryRowContext(ctx, "DELETE FROM document_sections WHERE id = $1 RETURNING document_id", sectionID).Scan(&docID)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to delete section %s: %v", sectionID, err)
	}
	return docID, apperr.FromDB(err, "delete section")
}
