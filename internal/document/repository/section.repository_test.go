package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamedoc/internal/document/model"
	"gamedoc/pkg/apperr"
)

func newRepo(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDocumentRepository(db), mock
}

func TestSaveSectionContentIsScopedToDocument(t *testing.T) {
	repo, mock := newRepo(t)
	saveQuery := regexp.QuoteMeta("WHERE id = $2 AND document_id = $3")

	mock.ExpectExec(saveQuery).WithArgs(sqlmock.AnyArg(), "sec-1", "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SaveSectionContent(context.Background(), "doc-1", "sec-1", model.Paragraph("Mounts")))

	// a section of another document matches no row
	mock.ExpectExec(saveQuery).WithArgs(sqlmock.AnyArg(), "sec-x", "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.SaveSectionContent(context.Background(), "doc-1", "sec-x", model.Paragraph("Mounts"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSectionsClaimsHighestIndex(t *testing.T) {
	repo, mock := newRepo(t)

	for _, idx := range []int{2, 9, 5} {
		mock.ExpectQuery("INSERT INTO document_sections").
			WithArgs(sqlmock.AnyArg(), "doc-1", sqlmock.AnyArg(), sqlmock.AnyArg(), idx).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))
	}
	mock.ExpectExec(regexp.QuoteMeta("GREATEST(next_section_index, $2 + 1)")).WithArgs("doc-1", 9).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.InsertSections(context.Background(), []model.Section{
		{ID: "a", DocumentID: "doc-1", Title: "Quests", OrderIndex: 2},
		{ID: "b", DocumentID: "doc-1", Title: "Crafting", OrderIndex: 9},
		{ID: "c", DocumentID: "doc-1", Title: "Economy", OrderIndex: 5},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSectionsEmpty(t *testing.T) {
	repo, mock := newRepo(t)
	require.NoError(t, repo.InsertSections(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
