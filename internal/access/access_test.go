package access

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"gamedoc/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	owners map[string]Owners
	grants map[[2]string]Level
	err    error
}

func (f *fakeLookup) DocumentOwners(_ context.Context, docID string) (Owners, error) {
	o, ok := f.owners[docID]
	if !ok {
		return Owners{}, apperr.ErrNotFound
	}
	return o, nil
}

func (f *fakeLookup) CollaboratorLevel(_ context.Context, docID, userID string) (Level, error) {
	if f.err != nil {
		return None, f.err
	}
	l, ok := f.grants[[2]string{docID, userID}]
	if !ok {
		return None, apperr.ErrNotFound
	}
	return l, nil
}

func newFake() *fakeLookup {
	return &fakeLookup{
		owners: map[string]Owners{
			"doc-1": {DocumentOwnerID: "u1", GameOwnerID: "u1"},
			"doc-2": {DocumentOwnerID: "u3", GameOwnerID: "u1"},
		},
		grants: map[[2]string]Level{
			{"doc-1", "u1"}: Viewer,
			{"doc-1", "u2"}: Editor,
		},
	}
}

func TestResolveOwnerWinsOverGrant(t *testing.T) {
	r := NewResolver(newFake())
	level, err := r.Resolve(context.Background(), "u1", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, Owner, level)
}

func TestResolveGameOwnerIsOwner(t *testing.T) {
	r := NewResolver(newFake())
	level, err := r.Resolve(context.Background(), "u1", "doc-2")
	require.NoError(t, err)
	assert.Equal(t, Owner, level)
}

func TestResolveCollaborator(t *testing.T) {
	r := NewResolver(newFake())
	level, err := r.Resolve(context.Background(), "u2", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, Editor, level)
}

func TestResolveStranger(t *testing.T) {
	r := NewResolver(newFake())
	level, err := r.Resolve(context.Background(), "stranger", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, None, level)
}

func TestResolveEmptyUserNeverOwner(t *testing.T) {
	f := newFake()
	f.owners["orphan"] = Owners{DocumentOwnerID: "u1"}
	r := NewResolver(f)
	level, err := r.Resolve(context.Background(), "", "orphan")
	require.NoError(t, err)
	assert.Equal(t, None, level)
}

func TestResolveUnknownDocument(t *testing.T) {
	r := NewResolver(newFake())
	_, err := r.Resolve(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResolveStorageError(t *testing.T) {
	f := newFake()
	f.err = errors.New("connection refused")
	r := NewResolver(f)
	_, err := r.Resolve(context.Background(), "u2", "doc-1")
	assert.Error(t, err)
}

func TestRequire(t *testing.T) {
	r := NewResolver(newFake())
	ctx := context.Background()

	_, err := r.Require(ctx, "stranger", "doc-1", Viewer)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	f := newFake()
	f.grants[[2]string{"doc-1", "u4"}] = Viewer
	r = NewResolver(f)
	level, err := r.Require(ctx, "u4", "doc-1", Editor)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)
	assert.Equal(t, Viewer, level)

	level, err = r.Require(ctx, "u2", "doc-1", Editor)
	require.NoError(t, err)
	assert.Equal(t, Editor, level)
}

func TestLevelOrderingAndParsing(t *testing.T) {
	assert.True(t, Owner.AtLeast(Editor))
	assert.True(t, Editor.AtLeast(Viewer))
	assert.False(t, Viewer.AtLeast(Editor))
	assert.True(t, Viewer.Grantable())
	assert.False(t, Owner.Grantable())
	assert.False(t, None.Grantable())

	l, err := ParseLevel("Editor")
	require.NoError(t, err)
	assert.Equal(t, Editor, l)

	_, err = ParseLevel("admin")
	assert.Error(t, err)
}

func TestLevelJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Level Level `json:"level"`
	}{Viewer})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"viewer"}`, string(b))

	var out struct {
		Level Level `json:"level"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"level":"editor"}`), &out))
	assert.Equal(t, Editor, out.Level)
	assert.Error(t, json.Unmarshal([]byte(`{"level":"root"}`), &out))
}
