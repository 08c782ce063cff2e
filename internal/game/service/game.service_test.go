package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamedoc/internal/game/model"
	"gamedoc/pkg/apperr"
	"gamedoc/socket"
)

type fakePresigner struct {
	key string
	err error
}

func (f *fakePresigner) PresignPut(_ context.Context, key, _ string) (string, time.Time, error) {
	f.key = key
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return "https://uploads.example.com/" + key + "?sig=abc", time.Now().Add(15 * time.Minute), nil
}

type recordingNotifier struct {
	removed []string
}

func (n *recordingNotifier) Publish(socket.WSMessage)    {}
func (n *recordingNotifier) RemoveDocument(docID string) { n.removed = append(n.removed, docID) }
func (n *recordingNotifier) RemoveUser(_, _ string)      {}
func (n *recordingNotifier) Forget(string)               {}

var gameCols = []string{"id", "name", "concept", "start_date", "timeline", "platforms", "image_key", "user_id", "created_at", "updated_at"}

func gameRows(id, owner string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(gameCols).AddRow(id, "Harvest", "", nil, "", "{pc,switch}", nil, owner, now, now)
}

func TestCreateGameSeedsDesignDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	svc := NewGameService(db, nil, nil)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO games").
		WithArgs(sqlmock.AnyArg(), "Harvest", "Farm by day, fight by night", nil, "", sqlmock.AnyArg(), "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(sqlmock.AnyArg(), "Harvest Design Document", sqlmock.AnyArg(), "user-1", true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	for i, title := range DefaultSections {
		mock.ExpectQuery("INSERT INTO document_sections").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), title, sqlmock.AnyArg(), i).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	}
	mock.ExpectExec(regexp.QuoteMeta("SET next_section_index = GREATEST(next_section_index, $2 + 1)")).
		WithArgs(sqlmock.AnyArg(), len(DefaultSections)-1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	game, doc, err := svc.CreateGame(context.Background(), "user-1", model.CreateGameRequest{
		Name:      " Harvest ",
		Concept:   "Farm by day, fight by night",
		Platforms: []string{"PC", " pc", "Switch", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"PC", "Switch"}, game.Platforms)
	assert.True(t, doc.IsGDD)
	require.NotNil(t, doc.GameID)
	assert.Equal(t, game.ID, *doc.GameID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGameRollsBackWhenDocumentFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	svc := NewGameService(db, nil, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO games").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))
	mock.ExpectQuery("INSERT INTO documents").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, _, err = svc.CreateGame(context.Background(), "user-1", model.CreateGameRequest{Name: "Harvest"})
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGameRequiresName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, _, err = NewGameService(db, nil, nil).CreateGame(context.Background(), "user-1", model.CreateGameRequest{Name: "  "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateGameAppliesOnlyGivenFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	svc := NewGameService(db, nil, nil)

	mock.ExpectQuery("FROM games WHERE id = \\$1 AND user_id = \\$2").WithArgs("game-1", "user-1").
		WillReturnRows(gameRows("game-1", "user-1"))
	mock.ExpectQuery("UPDATE games").
		WithArgs("Harvest", "Roguelite farming", nil, "", sqlmock.AnyArg(), "game-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	concept := "Roguelite farming"
	game, err := svc.UpdateGame(context.Background(), "user-1", "game-1", model.UpdateGameRequest{Concept: &concept})
	require.NoError(t, err)
	assert.Equal(t, "Roguelite farming", game.Concept)
	assert.Equal(t, []string{"pc", "switch"}, game.Platforms)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetGameOfAnotherUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM games").WithArgs("game-1", "user-2").WillReturnRows(sqlmock.NewRows(gameCols))
	_, err = NewGameService(db, nil, nil).GetGame(context.Background(), "user-2", "game-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteGameDropsDocumentRooms(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	notifier := &recordingNotifier{}
	svc := NewGameService(db, nil, notifier)
	now := time.Now()

	mock.ExpectQuery("FROM games").WithArgs("game-1", "user-1").WillReturnRows(gameRows("game-1", "user-1"))
	mock.ExpectQuery(`WHERE game_id = \$1\s+ORDER BY created_at ASC`).WithArgs("game-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "game_id", "user_id", "is_gdd", "created_at", "updated_at"}).
			AddRow("doc-1", "GDD", "game-1", "user-1", true, now, now).
			AddRow("doc-2", "Lore", "game-1", "user-1", false, now, now))
	mock.ExpectExec("DELETE FROM games").WithArgs("game-1", "user-1").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.DeleteGame(context.Background(), "user-1", "game-1"))
	assert.Equal(t, []string{"doc-1", "doc-2"}, notifier.removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestImageUpload(t *testing.T) {
	t.Run("stores the key and presigns it", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		presigner := &fakePresigner{}
		svc := NewGameService(db, presigner, nil)

		mock.ExpectExec("UPDATE games SET image_key").
			WithArgs(sqlmock.AnyArg(), "game-1", "user-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		resp, err := svc.RequestImageUpload(context.Background(), "user-1", "game-1", "image/png")
		require.NoError(t, err)
		assert.Regexp(t, `^games/game-1/[0-9a-f-]{36}\.png$`, resp.Key)
		assert.Equal(t, presigner.key, resp.Key)
		assert.Contains(t, resp.UploadURL, resp.Key)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown game", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("UPDATE games SET image_key").WillReturnResult(sqlmock.NewResult(0, 0))
		_, err = NewGameService(db, &fakePresigner{}, nil).RequestImageUpload(context.Background(), "user-2", "game-1", "image/jpeg")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("presign failure stores no key", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		_, err = NewGameService(db, &fakePresigner{err: assert.AnError}, nil).RequestImageUpload(context.Background(), "user-1", "game-1", "image/webp")
		assert.ErrorIs(t, err, apperr.ErrStorage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unsupported type", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		_, err = NewGameService(db, &fakePresigner{}, nil).RequestImageUpload(context.Background(), "user-1", "game-1", "image/gif")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("storage disabled", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		_, err = NewGameService(db, nil, nil).RequestImageUpload(context.Background(), "user-1", "game-1", "image/png")
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})
}
