package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamedoc/internal/note/model"
	"gamedoc/pkg/apperr"
)

var noteCols = []string{"id", "user_id", "title", "content", "tags", "game", "created_at", "updated_at"}

func newService(t *testing.T) (*NoteService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewNoteService(db), mock
}

func strPtr(s string) *string { return &s }

func TestCreateNote(t *testing.T) {
	svc, mock := newService(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO notes").
		WithArgs(sqlmock.AnyArg(), "user-1", "Boss ideas", nil, sqlmock.AnyArg(), "Harvest").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	note, err := svc.Create(context.Background(), "user-1", model.NoteRequest{
		Title: strPtr(" Boss ideas "),
		Tags:  []string{"combat", " act 2", "combat", ""},
		Game:  strPtr("Harvest"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"combat", "act 2"}, note.Tags)
	assert.Nil(t, note.Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEmptyNote(t *testing.T) {
	svc, mock := newService(t)
	_, err := svc.Create(context.Background(), "user-1", model.NoteRequest{Title: strPtr("  ")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListNotesByTag(t *testing.T) {
	svc, mock := newService(t)
	now := time.Now()

	mock.ExpectQuery("ANY\\(tags\\)").WithArgs("user-1", "combat").
		WillReturnRows(sqlmock.NewRows(noteCols).
			AddRow("note-1", "user-1", "Boss ideas", nil, "{combat}", nil, now, now))

	notes, err := svc.List(context.Background(), "user-1", " combat ")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, []string{"combat"}, notes[0].Tags)
	assert.Nil(t, notes[0].Game)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNotePatches(t *testing.T) {
	svc, mock := newService(t)
	now := time.Now()

	mock.ExpectQuery("FROM notes WHERE id = \\$1 AND user_id = \\$2").WithArgs("note-1", "user-1").
		WillReturnRows(sqlmock.NewRows(noteCols).
			AddRow("note-1", "user-1", "Boss ideas", "old", "{combat}", nil, now, now))
	mock.ExpectQuery("UPDATE notes").
		WithArgs("Boss ideas", "Three phases", sqlmock.AnyArg(), nil, "note-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	note, err := svc.Update(context.Background(), "user-1", "note-1", model.NoteRequest{Content: strPtr("Three phases")})
	require.NoError(t, err)
	assert.Equal(t, "Three phases", *note.Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotesAreOwnerScoped(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery("FROM notes").WithArgs("note-1", "user-2").WillReturnRows(sqlmock.NewRows(noteCols))
	_, err := svc.Get(context.Background(), "user-2", "note-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	mock.ExpectExec("DELETE FROM notes").WithArgs("note-1", "user-2").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, svc.Delete(context.Background(), "user-2", "note-1"), apperr.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
