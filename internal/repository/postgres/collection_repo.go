package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

const collectionCols = `id, owner_id, title, genres, release_date, cover, track_ids, created_at, updated_at, deleted_at`

// CollectionRepo implements CollectionRepository using PostgreSQL.
type CollectionRepo struct{ q querier }

// NewCollectionRepo constructs a collection repository.
func NewCollectionRepo(db *DB) *CollectionRepo { return &CollectionRepo{q: db.Pool} }

func scanCollection(row rowScanner) (*model.Collection, error) {
	var c model.Collection
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Genres, &c.ReleaseDate, &c.Cover,
		&c.TrackIDs, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new collection row.
func (r *CollectionRepo) Create(ctx context.Context, c *model.Collection) error {
	const q = `
INSERT INTO collections (id, owner_id, title, genres, release_date, cover, track_ids, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	ids := c.TrackIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	_, err := r.q.Exec(ctx, q, c.ID, c.OwnerID, c.Title, c.Genres, c.ReleaseDate, c.Cover, ids, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a collection by ID.
func (r *CollectionRepo) GetByID(ctx context.Context, id uuid.UUID, scope repository.Scope) (*model.Collection, error) {
	q := `SELECT ` + collectionCols + ` FROM collections WHERE ` + scoped("id=$1", scope)
	c, err := scanCollection(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// List selects active collections, newest first.
func (r *CollectionRepo) List(ctx context.Context, owner *uuid.UUID) ([]model.Collection, error) {
	var (
		q    string
		args []any
	)
	if owner != nil {
		q = `SELECT ` + collectionCols + ` FROM collections WHERE ` + scoped("owner_id=$1", repository.Active)
		args = append(args, *owner)
	} else {
		q = `SELECT ` + collectionCols + ` FROM collections WHERE ` + scoped("", repository.Active)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Update overwrites title, genres and cover of an active collection.
func (r *CollectionRepo) Update(ctx context.Context, c *model.Collection) error {
	const q = `
UPDATE collections SET title=$2, genres=$3, cover=$4, updated_at=$5
WHERE id=$1 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, q, c.ID, c.Title, c.Genres, c.Cover, c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetTracks replaces the ordered track list of an active collection.
func (r *CollectionRepo) SetTracks(ctx context.Context, id uuid.UUID, trackIDs []uuid.UUID, at time.Time) error {
	const q = `
UPDATE collections SET track_ids=$2, updated_at=$3
WHERE id=$1 AND deleted_at IS NULL`
	if trackIDs == nil {
		trackIDs = []uuid.UUID{}
	}
	tag, err := r.q.Exec(ctx, q, id, trackIDs, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SoftDelete stamps an active collection as deleted.
func (r *CollectionRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return softDeleteOne(ctx, r.q, "collections", id, at)
}
