package user

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamedoc/pkg/apperr"
)

func TestSyncerUpsertsOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSyncer(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("user-1", "ada@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Sync(context.Background(), "user-1", "ada@example.com"))
	require.NoError(t, s.Sync(context.Background(), "user-1", "ada@example.com"))

	// a changed email is written again
	mock.ExpectExec("INSERT INTO users").
		WithArgs("user-1", "ada@studio.dev").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Sync(context.Background(), "user-1", "ada@studio.dev"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncerDoesNotCacheFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSyncer(db)
	mock.ExpectExec("INSERT INTO users").WillReturnError(assert.AnError)
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))

	err = s.Sync(context.Background(), "user-1", "ada@example.com")
	assert.ErrorIs(t, err, apperr.ErrStorage)
	require.NoError(t, s.Sync(context.Background(), "user-1", "ada@example.com"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(email) = lower($1)")).
		WithArgs("Ada@Example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "created_at", "updated_at"}).
			AddRow("user-1", "ada@example.com", now, now))

	u, err := repo.GetByEmail(context.Background(), " Ada@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)

	mock.ExpectQuery("FROM users").WillReturnRows(sqlmock.NewRows([]string{"id", "email", "created_at", "updated_at"}))
	_, err = repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
