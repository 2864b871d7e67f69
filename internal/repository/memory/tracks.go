package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/repository"
	"github.com/gofrs/uuid/v5"
)

type trackRepo struct{ v view }

var _ repository.TrackRepository = (*trackRepo)(nil)

func visible(deletedAt *time.Time, scope repository.Scope) bool {
	return scope == repository.WithDeleted || deletedAt == nil
}

func copyTrack(t model.Track) model.Track {
	t.Genres = slices.Clone(t.Genres)
	return t
}

func (s *state) trackIdentityTaken(t *model.Track) bool {
	for _, o := range s.tracks {
		if o.ID != t.ID && o.DeletedAt == nil && o.OwnerID == t.OwnerID &&
			o.Fingerprint == t.Fingerprint && o.Duration == t.Duration {
			return true
		}
	}
	return false
}

func (r *trackRepo) Create(_ context.Context, t *model.Track) error {
	return r.v.do(func(s *state) error {
		if _, ok := s.tracks[t.ID]; ok || s.trackIdentityTaken(t) {
			return errs.ErrAlreadyExists
		}
		s.tracks[t.ID] = copyTrack(*t)
		s.trackOrder = append(s.trackOrder, t.ID)
		return nil
	})
}

func (r *trackRepo) GetByID(_ context.Context, id uuid.UUID, scope repository.Scope) (*model.Track, error) {
	var out *model.Track
	err := r.v.do(func(s *state) error {
		t, ok := s.tracks[id]
		if !ok || !visible(t.DeletedAt, scope) {
			return errs.ErrNotFound
		}
		c := copyTrack(t)
		out = &c
		return nil
	})
	return out, err
}

func (r *trackRepo) find(match func(t model.Track) bool) (*model.Track, error) {
	var out *model.Track
	err := r.v.do(func(s *state) error {
		for _, id := range s.trackOrder {
			t := s.tracks[id]
			if t.DeletedAt == nil && match(t) {
				c := copyTrack(t)
				out = &c
				return nil
			}
		}
		return errs.ErrNotFound
	})
	return out, err
}

func (r *trackRepo) FindByFingerprint(_ context.Context, owner uuid.UUID, fingerprint string, duration float64) (*model.Track, error) {
	return r.find(func(t model.Track) bool {
		return t.OwnerID == owner && t.Fingerprint == fingerprint && t.Duration == duration
	})
}

func (r *trackRepo) FindByTitle(_ context.Context, owner uuid.UUID, title string) (*model.Track, error) {
	return r.find(func(t model.Track) bool { return t.OwnerID == owner && t.Title == title })
}

func (r *trackRepo) GetMany(_ context.Context, ids []uuid.UUID) ([]model.Track, error) {
	var out []model.Track
	err := r.v.do(func(s *state) error {
		for _, id := range ids {
			if t, ok := s.tracks[id]; ok && t.DeletedAt == nil {
				out = append(out, copyTrack(t))
			}
		}
		return nil
	})
	return out, err
}

func compareTracks(by string) func(a, b model.Track) int {
	switch by {
	case repository.TrackByTitle:
		return func(a, b model.Track) int { return cmp.Compare(a.Title, b.Title) }
	case repository.TrackByDuration:
		return func(a, b model.Track) int { return cmp.Compare(a.Duration, b.Duration) }
	case repository.TrackByReleaseDate:
		return func(a, b model.Track) int { return a.ReleaseDate.Compare(b.ReleaseDate) }
	default:
		return func(a, b model.Track) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
}

func (r *trackRepo) List(_ context.Context, q repository.TrackQuery) ([]model.Track, int, error) {
	var (
		page  []model.Track
		total int
	)
	title := strings.ToLower(q.Title)
	err := r.v.do(func(s *state) error {
		var matched []model.Track
		for _, id := range s.trackOrder {
			t := s.tracks[id]
			if !visible(t.DeletedAt, q.Scope) {
				continue
			}
			if title != "" && !strings.Contains(strings.ToLower(t.Title), title) {
				continue
			}
			if q.Genre != "" && !slices.ContainsFunc(t.Genres, func(g string) bool { return strings.EqualFold(g, q.Genre) }) {
				continue
			}
			if q.Owner != nil && t.OwnerID != *q.Owner {
				continue
			}
			matched = append(matched, copyTrack(t))
		}
		less := compareTracks(q.SortBy)
		slices.SortStableFunc(matched, func(a, b model.Track) int {
			if q.Desc {
				return less(b, a)
			}
			return less(a, b)
		})
		total = len(matched)
		page = window(matched, q.Offset, q.Limit)
		return nil
	})
	return page, total, err
}

func (r *trackRepo) Update(_ context.Context, t *model.Track) error {
	return r.v.do(func(s *state) error {
		cur, ok := s.tracks[t.ID]
		if !ok || cur.DeletedAt != nil {
			return errs.ErrNotFound
		}
		if s.trackIdentityTaken(t) {
			return errs.ErrAlreadyExists
		}
		cur.Title = t.Title
		cur.Genres = slices.Clone(t.Genres)
		cur.ReleaseDate = t.ReleaseDate
		cur.Duration = t.Duration
		cur.Fingerprint = t.Fingerprint
		cur.Location = t.Location
		cur.Cover = t.Cover
		cur.UpdatedAt = t.UpdatedAt
		s.tracks[t.ID] = cur
		return nil
	})
}

func (r *trackRepo) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.v.do(func(s *state) error {
		t, ok := s.tracks[id]
		if !ok || t.DeletedAt != nil {
			return errs.ErrNotFound
		}
		t.DeletedAt = &at
		s.tracks[id] = t
		return nil
	})
}

// window returns items[offset:offset+limit] clamped to the slice bounds.
func window[T any](items []T, offset, limit int) []T {
	if offset < 0 || offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return items[offset:end]
}

type revisionRepo struct{ v view }

var _ repository.RevisionRepository = (*revisionRepo)(nil)

func (r *revisionRepo) Append(_ context.Context, rev *model.TrackRevision) error {
	return r.v.do(func(s *state) error {
		c := *rev
		c.Snapshot = copyTrack(rev.Snapshot)
		s.revisions = append(s.revisions, c)
		return nil
	})
}

func (r *revisionRepo) ListByTrack(_ context.Context, trackID uuid.UUID) ([]model.TrackRevision, error) {
	var out []model.TrackRevision
	err := r.v.do(func(s *state) error {
		for i := len(s.revisions) - 1; i >= 0; i-- {
			if s.revisions[i].TrackID == trackID {
				out = append(out, s.revisions[i])
			}
		}
		return nil
	})
	return out, err
}
