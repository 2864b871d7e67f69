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

// GrantRepo implements GrantRepository using PostgreSQL.
type GrantRepo struct{ q querier }

// NewGrantRepo constructs a grant repository.
func NewGrantRepo(db *DB) *GrantRepo { return &GrantRepo{q: db.Pool} }

// Create inserts a new playlist_grants row.
func (r *GrantRepo) Create(ctx context.Context, g *model.Grant) error {
	const q = `
INSERT INTO playlist_grants (id, playlist_id, grantee_id, granter_id, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.Exec(ctx, q, g.ID, g.PlaylistID, g.GranteeID, g.GranterID, g.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// FindActive selects the active grant of the pair.
func (r *GrantRepo) FindActive(ctx context.Context, playlistID, granteeID uuid.UUID) (*model.Grant, error) {
	const q = `
SELECT id, playlist_id, grantee_id, granter_id, created_at, deleted_at
FROM playlist_grants WHERE playlist_id=$1 AND grantee_id=$2 AND deleted_at IS NULL`
	var g model.Grant
	err := r.q.QueryRow(ctx, q, playlistID, granteeID).
		Scan(&g.ID, &g.PlaylistID, &g.GranteeID, &g.GranterID, &g.CreatedAt, &g.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// ListByGrantee selects the active grants held by a principal, newest first.
func (r *GrantRepo) ListByGrantee(ctx context.Context, granteeID uuid.UUID) ([]model.Grant, error) {
	const q = `
SELECT id, playlist_id, grantee_id, granter_id, created_at, deleted_at
FROM playlist_grants WHERE grantee_id=$1 AND deleted_at IS NULL
ORDER BY created_at DESC, id DESC`
	rows, err := r.q.Query(ctx, q, granteeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Grant
	for rows.Next() {
		var g model.Grant
		if err := rows.Scan(&g.ID, &g.PlaylistID, &g.GranteeID, &g.GranterID, &g.CreatedAt, &g.DeletedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// SoftDelete stamps an active grant as deleted.
func (r *GrantRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return softDeleteOne(ctx, r.q, "playlist_grants", id, at)
}

// SoftDeleteByPlaylist stamps every active grant of the playlist.
func (r *GrantRepo) SoftDeleteByPlaylist(ctx context.Context, playlistID uuid.UUID, at time.Time) (int64, error) {
	const q = `UPDATE playlist_grants SET deleted_at=$2 WHERE playlist_id=$1 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, q, playlistID, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
