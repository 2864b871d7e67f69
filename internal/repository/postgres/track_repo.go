package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/repository"
)

const trackCols = `id, owner_id, title, genres, release_date, duration, fingerprint, location, cover, collection_id, created_at, updated_at, deleted_at`

var trackSortCols = map[string]string{
	repository.TrackByCreatedAt:   "created_at",
	repository.TrackByTitle:       "title",
	repository.TrackByDuration:    "duration",
	repository.TrackByReleaseDate: "release_date",
}

// TrackRepo implements TrackRepository using PostgreSQL.
type TrackRepo struct{ q querier }

// NewTrackRepo constructs a track repository bound to the pool.
func NewTrackRepo(db *DB) *TrackRepo { return &TrackRepo{q: db.Pool} }

type rowScanner interface{ Scan(dest ...any) error }

func scanTrack(row rowScanner) (*model.Track, error) {
	var t model.Track
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Genres, &t.ReleaseDate, &t.Duration,
		&t.Fingerprint, &t.Location, &t.Cover, &t.CollectionID, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new track row.
func (r *TrackRepo) Create(ctx context.Context, t *model.Track) error {
	const q = `
INSERT INTO tracks (id, owner_id, title, genres, release_date, duration, fingerprint, location, cover, collection_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, q, t.ID, t.OwnerID, t.Title, t.Genres, t.ReleaseDate, t.Duration,
		t.Fingerprint, t.Location, t.Cover, t.CollectionID, t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a track by ID.
func (r *TrackRepo) GetByID(ctx context.Context, id uuid.UUID, scope repository.Scope) (*model.Track, error) {
	q := `SELECT ` + trackCols + ` FROM tracks WHERE ` + scoped("id=$1", scope)
	return r.one(ctx, q, id)
}

// FindByFingerprint selects the active track with the given content identity.
func (r *TrackRepo) FindByFingerprint(ctx context.Context, owner uuid.UUID, fingerprint string, duration float64) (*model.Track, error) {
	q := `SELECT ` + trackCols + ` FROM tracks WHERE ` +
		scoped("owner_id=$1 AND fingerprint=$2 AND duration=$3", repository.Active) + ` LIMIT 1`
	return r.one(ctx, q, owner, fingerprint, duration)
}

// FindByTitle selects an active track of the owner by exact title.
func (r *TrackRepo) FindByTitle(ctx context.Context, owner uuid.UUID, title string) (*model.Track, error) {
	q := `SELECT ` + trackCols + ` FROM tracks WHERE ` +
		scoped("owner_id=$1 AND title=$2", repository.Active) + ` LIMIT 1`
	return r.one(ctx, q, owner, title)
}

func (r *TrackRepo) one(ctx context.Context, q string, args ...any) (*model.Track, error) {
	t, err := scanTrack(r.q.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// GetMany selects the active tracks among ids.
func (r *TrackRepo) GetMany(ctx context.Context, ids []uuid.UUID) ([]model.Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `SELECT ` + trackCols + ` FROM tracks WHERE ` + scoped("id = ANY($1)", repository.Active)
	return r.many(ctx, q, ids)
}

func (r *TrackRepo) many(ctx context.Context, q string, args ...any) ([]model.Track, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// List returns one page of tracks and the number of rows matching the filters.
func (r *TrackRepo) List(ctx context.Context, tq repository.TrackQuery) ([]model.Track, int, error) {
	var (
		conds []string
		args  []any
	)
	if tq.Title != "" {
		args = append(args, "%"+escapeLike(tq.Title)+"%")
		conds = append(conds, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if tq.Genre != "" {
		args = append(args, tq.Genre)
		conds = append(conds, fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(genres) g WHERE lower(g) = lower($%d))", len(args)))
	}
	if tq.Owner != nil {
		args = append(args, *tq.Owner)
		conds = append(conds, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	where := scoped(strings.Join(conds, " AND "), tq.Scope)
	if where != "" {
		where = " WHERE " + where
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM tracks`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := trackSortCols[tq.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if tq.Desc {
		dir = "DESC"
	}
	q := fmt.Sprintf(`SELECT %s FROM tracks%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		trackCols, where, col, dir, dir, len(args)+1, len(args)+2)
	items, err := r.many(ctx, q, append(args, tq.Limit, tq.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update overwrites the mutable fields of an active track.
func (r *TrackRepo) Update(ctx context.Context, t *model.Track) error {
	const q = `
UPDATE tracks
SET title=$2, genres=$3, release_date=$4, duration=$5, fingerprint=$6, location=$7, cover=$8, updated_at=$9
WHERE id=$1 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, q, t.ID, t.Title, t.Genres, t.ReleaseDate, t.Duration,
		t.Fingerprint, t.Location, t.Cover, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SoftDelete stamps an active track as deleted.
func (r *TrackRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return softDeleteOne(ctx, r.q, "tracks", id, at)
}

func softDeleteOne(ctx context.Context, q querier, table string, id uuid.UUID, at time.Time) error {
	sql := `UPDATE ` + table + ` SET deleted_at=$2 WHERE id=$1 AND deleted_at IS NULL`
	tag, err := q.Exec(ctx, sql, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
