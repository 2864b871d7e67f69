package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

const playlistCols = `id, name, description, owner_id, shared, created_at, updated_at, deleted_at`

var playlistSortCols = map[string]string{
	repository.PlaylistByCreatedAt: "created_at",
	repository.PlaylistByName:      "lower(name)",
}

// PlaylistRepo implements PlaylistRepository using PostgreSQL.
type PlaylistRepo struct{ q querier }

// NewPlaylistRepo constructs a playlist repository.
func NewPlaylistRepo(db *DB) *PlaylistRepo { return &PlaylistRepo{q: db.Pool} }

func scanPlaylist(row rowScanner) (*model.Playlist, error) {
	var p model.Playlist
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.Shared,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new playlist row.
func (r *PlaylistRepo) Create(ctx context.Context, p *model.Playlist) error {
	const q = `
INSERT INTO playlists (id, name, description, owner_id, shared, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, q, p.ID, p.Name, p.Description, p.OwnerID, p.Shared, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a playlist by ID.
func (r *PlaylistRepo) GetByID(ctx context.Context, id uuid.UUID, scope repository.Scope) (*model.Playlist, error) {
	q := `SELECT ` + playlistCols + ` FROM playlists WHERE ` + scoped("id=$1", scope)
	p, err := scanPlaylist(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns one page of playlists and the number of rows matching the filters.
func (r *PlaylistRepo) List(ctx context.Context, pq repository.PlaylistQuery) ([]model.Playlist, int, error) {
	var (
		where string
		args  []any
	)
	if pq.Owner != nil {
		args = append(args, *pq.Owner)
		where = fmt.Sprintf("owner_id = $%d", len(args))
	}
	if pq.Search != "" {
		args = append(args, "%"+escapeLike(pq.Search)+"%")
		if where != "" {
			where += " AND "
		}
		where += fmt.Sprintf("name ILIKE $%d", len(args))
	}
	where = scoped(where, pq.Scope)
	if where != "" {
		where = " WHERE " + where
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM playlists`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := playlistSortCols[pq.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if pq.Desc {
		dir = "DESC"
	}
	q := fmt.Sprintf(`SELECT %s FROM playlists%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		playlistCols, where, col, dir, dir, len(args)+1, len(args)+2)
	rows, err := r.q.Query(ctx, q, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update overwrites name, description and shared flag of an active playlist.
func (r *PlaylistRepo) Update(ctx context.Context, p *model.Playlist) error {
	const q = `
UPDATE playlists SET name=$2, description=$3, shared=$4, updated_at=$5
WHERE id=$1 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, q, p.ID, p.Name, p.Description, p.Shared, p.UpdatedAt)
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

// SoftDelete stamps an active playlist as deleted.
func (r *PlaylistRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return softDeleteOne(ctx, r.q, "playlists", id, at)
}
