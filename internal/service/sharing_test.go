package service

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/model"
)

func TestShare_Invariants(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u1 := e.user(t, model.RoleUser)
	u2 := e.user(t, model.RoleUser)
	u3 := e.user(t, model.RoleUser)
	p, err := e.playlists.CreatePlaylist(ctx, u1, model.NewPlaylist{Name: "Shared"})
	require.NoError(t, err)

	_, err = e.sharing.Share(ctx, p.ID, u1, u1)
	requireCode(t, err, errs.ErrValidation, errs.CodeConflictUsers)

	g, err := e.sharing.Share(ctx, p.ID, u1, u2)
	require.NoError(t, err)
	require.Equal(t, u1, g.GranterID)

	_, err = e.sharing.Share(ctx, p.ID, u1, u2)
	requireCode(t, err, errs.ErrConflict, errs.CodeAlreadyShared)

	_, err = e.sharing.Share(ctx, p.ID, u2, u3)
	requireCode(t, err, errs.ErrUnauthorized, errs.CodeUnauthorized)

	_, err = e.sharing.Share(ctx, p.ID, u1, uuid.Must(uuid.NewV4()))
	requireCode(t, err, errs.ErrNotFound, errs.CodeUserNotFound)

	_, err = e.sharing.Share(ctx, uuid.Must(uuid.NewV4()), u1, u2)
	requireCode(t, err, errs.ErrNotFound, errs.CodePlaylistNotFound)
}

func TestRevoke_And_CanView(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, model.RoleUser)
	guest := e.user(t, model.RoleUser)
	p, err := e.playlists.CreatePlaylist(ctx, owner, model.NewPlaylist{Name: "Private"})
	require.NoError(t, err)

	ok, err := e.sharing.CanView(ctx, p.ID, guest)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = e.sharing.Share(ctx, p.ID, owner, guest)
	require.NoError(t, err)
	ok, err = e.sharing.CanView(ctx, p.ID, guest)
	require.NoError(t, err)
	require.True(t, ok)

	grants, err := e.sharing.ListGrantsForUser(ctx, guest)
	require.NoError(t, err)
	require.Len(t, grants, 1)

	requireCode(t, e.sharing.Revoke(ctx, p.ID, guest, guest), errs.ErrUnauthorized, errs.CodeUnauthorized)
	require.NoError(t, e.sharing.Revoke(ctx, p.ID, owner, guest))
	requireCode(t, e.sharing.Revoke(ctx, p.ID, owner, guest), errs.ErrNotFound, errs.CodeGrantNotFound)

	ok, err = e.sharing.CanView(ctx, p.ID, owner)
	require.NoError(t, err)
	require.True(t, ok)

	// sharing again after a revoke is allowed
	_, err = e.sharing.Share(ctx, p.ID, owner, guest)
	require.NoError(t, err)

	empty, err := e.sharing.ListGrantsForUser(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestIdentity_Lookup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.user(t, model.RoleArtist)
	ident := NewIdentity(e.db.Store().Users)

	p, err := ident.Lookup(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.Principal{ID: id, Role: model.RoleArtist}, p)

	_, err = ident.Lookup(ctx, uuid.Must(uuid.NewV4()))
	requireCode(t, err, errs.ErrNotFound, errs.CodeUserNotFound)
}

func TestIdentity_Enroll(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ident := NewIdentity(e.db.Store().Users)
	id := uuid.Must(uuid.NewV4())

	u, err := ident.Enroll(ctx, id, "  neo ", model.RoleArtist)
	require.NoError(t, err)
	require.Equal(t, "neo", u.Username)
	require.False(t, u.CreatedAt.IsZero())

	p, err := ident.Lookup(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.Principal{ID: id, Role: model.RoleArtist}, p)

	_, err = ident.Enroll(ctx, id, "other", model.RoleUser)
	requireCode(t, err, errs.ErrConflict, errs.CodeUserExists)
	_, err = ident.Enroll(ctx, uuid.Must(uuid.NewV4()), "neo", model.RoleUser)
	requireCode(t, err, errs.ErrConflict, errs.CodeUserExists)

	for _, bad := range []struct {
		id   uuid.UUID
		name string
		role string
	}{
		{uuid.Nil, "a", model.RoleUser},
		{uuid.Must(uuid.NewV4()), " ", model.RoleUser},
		{uuid.Must(uuid.NewV4()), "b", "admin"},
	} {
		_, err := ident.Enroll(ctx, bad.id, bad.name, bad.role)
		requireCode(t, err, errs.ErrValidation, errs.CodeValidationFailed)
	}
}
