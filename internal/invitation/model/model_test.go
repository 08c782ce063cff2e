package model

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamedoc/pkg/apperr"
)

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		status  Status
		expires *time.Time
		want    Status
	}{
		{"pending without expiry", StatusPending, nil, StatusPending},
		{"pending before expiry", StatusPending, &future, StatusPending},
		{"pending past expiry", StatusPending, &past, StatusExpired},
		{"pending exactly at expiry", StatusPending, &now, StatusExpired},
		{"accepted stays accepted", StatusAccepted, &past, StatusAccepted},
		{"declined stays declined", StatusDeclined, nil, StatusDeclined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := Invitation{Status: tt.status, ExpiresAt: tt.expires}
			assert.Equal(t, tt.want, inv.EffectiveStatus(now))
		})
	}
}

func TestCheckRespondable(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)

	assert.NoError(t, (&Invitation{Status: StatusPending}).CheckRespondable(now))
	assert.ErrorIs(t, (&Invitation{Status: StatusPending, ExpiresAt: &past}).CheckRespondable(now), apperr.ErrExpired)
	assert.ErrorIs(t, (&Invitation{Status: StatusExpired}).CheckRespondable(now), apperr.ErrExpired)
	assert.ErrorIs(t, (&Invitation{Status: StatusAccepted}).CheckRespondable(now), apperr.ErrInvalidState)
	assert.ErrorIs(t, (&Invitation{Status: StatusDeclined}).CheckRespondable(now), apperr.ErrInvalidState)
}

func TestTargetColumnsRoundTrip(t *testing.T) {
	for _, target := range []Target{DocumentTarget("d"), TeamTarget("t"), GameTarget("g")} {
		doc, team, game := target.Columns()
		got, err := TargetFromColumns(nullString(doc), nullString(team), nullString(game))
		require.NoError(t, err)
		assert.Equal(t, target, got)
	}
}

func TestTargetFromColumnsRejectsAmbiguity(t *testing.T) {
	_, err := TargetFromColumns(sql.NullString{}, sql.NullString{}, sql.NullString{})
	assert.Error(t, err)

	_, err = TargetFromColumns(sql.NullString{String: "d", Valid: true}, sql.NullString{String: "t", Valid: true}, sql.NullString{})
	assert.Error(t, err)
}

func TestTargetValidate(t *testing.T) {
	assert.NoError(t, DocumentTarget("d").Validate())
	assert.ErrorIs(t, Target{Kind: "scene", ID: "x"}.Validate(), apperr.ErrValidation)
	assert.ErrorIs(t, TeamTarget("").Validate(), apperr.ErrValidation)
}

func nullString(v any) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.(string), Valid: true}
}
