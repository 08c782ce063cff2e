package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestFromDB(t *testing.T) {
	assert.NoError(t, FromDB(nil, "noop"))

	err := FromDB(sql.ErrNoRows, "get game")
	assert.ErrorIs(t, err, ErrNotFound)

	err = FromDB(&pq.Error{Code: "23505", Constraint: "invitations_token_key"}, "create invitation")
	assert.ErrorIs(t, err, ErrConflict)

	err = FromDB(&pq.Error{Code: "23503"}, "create section")
	assert.ErrorIs(t, err, ErrNotFound)

	err = FromDB(&pq.Error{Code: "22P02"}, "get document")
	assert.ErrorIs(t, err, ErrNotFound)

	err = FromDB(&pq.Error{Code: "23514"}, "create invitation")
	assert.ErrorIs(t, err, ErrValidation)

	err = FromDB(errors.New("connection reset"), "list notes")
	assert.ErrorIs(t, err, ErrStorage)
	assert.Contains(t, err.Error(), "list notes")
}

func TestValidation(t *testing.T) {
	err := Validation("title is required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "title is required", Message(err))

	wrapped := fmt.Errorf("create document: %w", err)
	assert.Equal(t, "title is required", Message(wrapped))
	assert.Empty(t, Message(ErrNotFound))
}
