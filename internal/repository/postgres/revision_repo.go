package postgres

import (
	"context"

	"github.com/and161185/tunevault/internal/model"
	"github.com/gofrs/uuid/v5"
)

// RevisionRepo implements RevisionRepository using PostgreSQL. Snapshots are stored
// column by column next to the archive metadata.
type RevisionRepo struct{ q querier }

// NewRevisionRepo constructs a revision repository.
func NewRevisionRepo(db *DB) *RevisionRepo { return &RevisionRepo{q: db.Pool} }

// Append inserts a track snapshot.
func (r *RevisionRepo) Append(ctx context.Context, rev *model.TrackRevision) error {
	const q = `
INSERT INTO track_revisions (id, track_id, archived_at, owner_id, title, genres, release_date, duration, fingerprint, location, cover, collection_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	s := rev.Snapshot
	_, err := r.q.Exec(ctx, q, rev.ID, rev.TrackID, rev.ArchivedAt, s.OwnerID, s.Title, s.Genres, s.ReleaseDate,
		s.Duration, s.Fingerprint, s.Location, s.Cover, s.CollectionID, s.CreatedAt, s.UpdatedAt)
	return err
}

// ListByTrack selects the snapshots of a track, most recent first.
func (r *RevisionRepo) ListByTrack(ctx context.Context, trackID uuid.UUID) ([]model.TrackRevision, error) {
	const q = `
SELECT id, track_id, archived_at, owner_id, title, genres, release_date, duration, fingerprint, location, cover, collection_id, created_at, updated_at
FROM track_revisions WHERE track_id=$1
ORDER BY archived_at DESC, id DESC`
	rows, err := r.q.Query(ctx, q, trackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TrackRevision
	for rows.Next() {
		var rev model.TrackRevision
		s := &rev.Snapshot
		if err := rows.Scan(&rev.ID, &rev.TrackID, &rev.ArchivedAt, &s.OwnerID, &s.Title, &s.Genres, &s.ReleaseDate,
			&s.Duration, &s.Fingerprint, &s.Location, &s.Cover, &s.CollectionID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.ID = rev.TrackID
		out = append(out, rev)
	}
	return out, rows.Err()
}
