package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// MembershipRepo implements MembershipRepository using PostgreSQL.
type MembershipRepo struct{ q querier }

// NewMembershipRepo constructs a membership repository.
func NewMembershipRepo(db *DB) *MembershipRepo { return &MembershipRepo{q: db.Pool} }

// Create inserts a new playlist_tracks row.
func (r *MembershipRepo) Create(ctx context.Context, m *model.Membership) error {
	const q = `
INSERT INTO playlist_tracks (id, playlist_id, track_id, added_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.q.Exec(ctx, q, m.ID, m.PlaylistID, m.TrackID, m.AddedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// FindActive selects the active membership of the pair.
func (r *MembershipRepo) FindActive(ctx context.Context, playlistID, trackID uuid.UUID) (*model.Membership, error) {
	const q = `
SELECT id, playlist_id, track_id, added_at, deleted_at
FROM playlist_tracks WHERE playlist_id=$1 AND track_id=$2 AND deleted_at IS NULL`
	var m model.Membership
	err := r.q.QueryRow(ctx, q, playlistID, trackID).
		Scan(&m.ID, &m.PlaylistID, &m.TrackID, &m.AddedAt, &m.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListByPlaylist selects active memberships in insertion order.
func (r *MembershipRepo) ListByPlaylist(ctx context.Context, playlistID uuid.UUID) ([]model.Membership, error) {
	const q = `
SELECT id, playlist_id, track_id, added_at, deleted_at
FROM playlist_tracks WHERE playlist_id=$1 AND deleted_at IS NULL
ORDER BY added_at ASC, seq ASC`
	rows, err := r.q.Query(ctx, q, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Membership
	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(&m.ID, &m.PlaylistID, &m.TrackID, &m.AddedAt, &m.DeletedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SoftDelete stamps an active membership as deleted.
func (r *MembershipRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return softDeleteOne(ctx, r.q, "playlist_tracks", id, at)
}

// SoftDeleteByPlaylist stamps every active membership of the playlist.
func (r *MembershipRepo) SoftDeleteByPlaylist(ctx context.Context, playlistID uuid.UUID, at time.Time) (int64, error) {
	const q = `UPDATE playlist_tracks SET deleted_at=$2 WHERE playlist_id=$1 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, q, playlistID, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
