package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestDB_WithinTx_CommitAndRollback(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	ctx := context.Background()
	plID := uuid.Must(uuid.NewV4())
	at := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE playlists SET deleted_at=\$2`).
		WithArgs(plID, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE playlist_tracks SET deleted_at=\$2 WHERE playlist_id=\$1`).
		WithArgs(plID, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectCommit()

	err := db.WithinTx(ctx, func(ctx context.Context, s repository.Store) error {
		if err := s.Playlists.SoftDelete(ctx, plID, at); err != nil {
			return err
		}
		n, err := s.Memberships.SoftDeleteByPlaylist(ctx, plID, at)
		require.Equal(t, int64(3), n)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE playlists SET deleted_at=\$2`).
		WithArgs(plID, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE playlist_grants SET deleted_at=\$2 WHERE playlist_id=\$1`).
		WithArgs(plID, at).
		WillReturnError(boom)
	mock.ExpectRollback()

	err = db.WithinTx(ctx, func(ctx context.Context, s repository.Store) error {
		if err := s.Playlists.SoftDelete(ctx, plID, at); err != nil {
			return err
		}
		_, err := s.Grants.SoftDeleteByPlaylist(ctx, plID, at)
		return err
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_WithinTx_CommitError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	commitErr := errors.New("commit failed")
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(commitErr)

	err := db.WithinTx(context.Background(), func(context.Context, repository.Store) error { return nil })
	require.ErrorIs(t, err, commitErr)
}

func TestRevisionRepo_AppendAndList(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRevisionRepo(db)
	ctx := context.Background()
	tr := sampleTrack()
	rev := &model.TrackRevision{ID: uuid.Must(uuid.NewV4()), TrackID: tr.ID, ArchivedAt: time.Now(), Snapshot: tr}

	mock.ExpectExec(`INSERT INTO track_revisions`).
		WithArgs(rev.ID, rev.TrackID, rev.ArchivedAt, tr.OwnerID, tr.Title, tr.Genres, tr.ReleaseDate,
			tr.Duration, tr.Fingerprint, tr.Location, tr.Cover, tr.CollectionID, tr.CreatedAt, tr.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Append(ctx, rev))

	mock.ExpectQuery(`FROM track_revisions WHERE track_id=\$1 ORDER BY archived_at DESC`).
		WithArgs(tr.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "track_id", "archived_at", "owner_id", "title", "genres",
			"release_date", "duration", "fingerprint", "location", "cover", "collection_id", "created_at", "updated_at"}).
			AddRow(rev.ID, tr.ID, rev.ArchivedAt, tr.OwnerID, tr.Title, tr.Genres, tr.ReleaseDate,
				tr.Duration, tr.Fingerprint, tr.Location, tr.Cover, tr.CollectionID, tr.CreatedAt, tr.UpdatedAt))
	revs, err := r.ListByTrack(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	require.Equal(t, tr.ID, revs[0].Snapshot.ID)
	require.Equal(t, "Blue", revs[0].Snapshot.Title)
}

func TestCollectionRepo_SetTracks_And_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewCollectionRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	owner := uuid.Must(uuid.NewV4())
	ids := []uuid.UUID{uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())}
	at := time.Now()

	mock.ExpectExec(`UPDATE collections SET track_ids=\$2, updated_at=\$3 WHERE id=\$1 AND deleted_at IS NULL`).
		WithArgs(id, ids, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.SetTracks(ctx, id, ids, at))

	mock.ExpectQuery(`FROM collections WHERE id=\$1 AND deleted_at IS NULL`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "title", "genres", "release_date", "cover",
			"track_ids", "created_at", "updated_at", "deleted_at"}).
			AddRow(id, owner, "LP", []string{"rock"}, at, "", ids, at, at, nil))
	c, err := r.GetByID(ctx, id, repository.Active)
	require.NoError(t, err)
	require.Equal(t, ids, c.TrackIDs)

	mock.ExpectQuery(`FROM collections WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, id, repository.Active)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCollectionRepo_List_AllOwners(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewCollectionRepo(db)

	mock.ExpectQuery(`FROM collections WHERE deleted_at IS NULL ORDER BY created_at DESC`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "title", "genres", "release_date", "cover",
			"track_ids", "created_at", "updated_at", "deleted_at"}))
	out, err := r.List(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestPlaylistRepo_Create_Conflict_and_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPlaylistRepo(db)
	ctx := context.Background()
	now := time.Now()
	p := &model.Playlist{ID: uuid.Must(uuid.NewV4()), Name: "Road", OwnerID: uuid.Must(uuid.NewV4()), CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(`INSERT INTO playlists`).
		WithArgs(p.ID, p.Name, p.Description, p.OwnerID, p.Shared, p.CreatedAt, p.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, p), errs.ErrAlreadyExists)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM playlists WHERE owner_id = \$1 AND name ILIKE \$2 AND deleted_at IS NULL`).
		WithArgs(p.OwnerID, "%ro%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY lower\(name\) ASC, id ASC LIMIT \$3 OFFSET \$4`).
		WithArgs(p.OwnerID, "%ro%", 10, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "owner_id", "shared", "created_at", "updated_at", "deleted_at"}).
			AddRow(p.ID, p.Name, p.Description, p.OwnerID, p.Shared, p.CreatedAt, p.UpdatedAt, nil))
	items, total, err := r.List(ctx, repository.PlaylistQuery{Owner: &p.OwnerID, Search: "ro", SortBy: repository.PlaylistByName, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Road", items[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipRepo_FindActive_and_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewMembershipRepo(db)
	ctx := context.Background()
	pl, tr := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(`FROM playlist_tracks WHERE playlist_id=\$1 AND track_id=\$2 AND deleted_at IS NULL`).
		WithArgs(pl, tr).
		WillReturnError(pgx.ErrNoRows)
	_, err := r.FindActive(ctx, pl, tr)
	require.ErrorIs(t, err, errs.ErrNotFound)

	cols := []string{"id", "playlist_id", "track_id", "added_at", "deleted_at"}
	first, second := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`ORDER BY added_at ASC, seq ASC`).
		WithArgs(pl).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(first, pl, tr, now, nil).
			AddRow(second, pl, uuid.Must(uuid.NewV4()), now.Add(time.Second), nil))
	ms, err := r.ListByPlaylist(ctx, pl)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	require.Equal(t, first, ms[0].ID)
}

func TestGrantRepo_Create_Duplicate(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewGrantRepo(db)
	g := &model.Grant{ID: uuid.Must(uuid.NewV4()), PlaylistID: uuid.Must(uuid.NewV4()),
		GranteeID: uuid.Must(uuid.NewV4()), GranterID: uuid.Must(uuid.NewV4()), CreatedAt: time.Now()}

	mock.ExpectExec(`INSERT INTO playlist_grants \(id, playlist_id, grantee_id, granter_id, created_at\)`).
		WithArgs(g.ID, g.PlaylistID, g.GranteeID, g.GranterID, g.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(context.Background(), g), errs.ErrAlreadyExists)
}
