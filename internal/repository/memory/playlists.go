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

type collectionRepo struct{ v view }

var _ repository.CollectionRepository = (*collectionRepo)(nil)

func copyCollection(c model.Collection) model.Collection {
	c.Genres = slices.Clone(c.Genres)
	c.TrackIDs = slices.Clone(c.TrackIDs)
	return c
}

func (r *collectionRepo) Create(_ context.Context, c *model.Collection) error {
	return r.v.do(func(s *state) error {
		if _, ok := s.collections[c.ID]; ok {
			return errs.ErrAlreadyExists
		}
		s.collections[c.ID] = copyCollection(*c)
		s.collOrder = append(s.collOrder, c.ID)
		return nil
	})
}

func (r *collectionRepo) GetByID(_ context.Context, id uuid.UUID, scope repository.Scope) (*model.Collection, error) {
	var out *model.Collection
	err := r.v.do(func(s *state) error {
		c, ok := s.collections[id]
		if !ok || !visible(c.DeletedAt, scope) {
			return errs.ErrNotFound
		}
		cc := copyCollection(c)
		out = &cc
		return nil
	})
	return out, err
}

func (r *collectionRepo) List(_ context.Context, owner *uuid.UUID) ([]model.Collection, error) {
	var out []model.Collection
	err := r.v.do(func(s *state) error {
		for i := len(s.collOrder) - 1; i >= 0; i-- {
			c := s.collections[s.collOrder[i]]
			if c.DeletedAt != nil || (owner != nil && c.OwnerID != *owner) {
				continue
			}
			out = append(out, copyCollection(c))
		}
		return nil
	})
	return out, err
}

func (r *collectionRepo) mutate(id uuid.UUID, fn func(c *model.Collection)) error {
	return r.v.do(func(s *state) error {
		c, ok := s.collections[id]
		if !ok || c.DeletedAt != nil {
			return errs.ErrNotFound
		}
		fn(&c)
		s.collections[id] = c
		return nil
	})
}

func (r *collectionRepo) Update(_ context.Context, c *model.Collection) error {
	return r.mutate(c.ID, func(cur *model.Collection) {
		cur.Title = c.Title
		cur.Genres = slices.Clone(c.Genres)
		cur.Cover = c.Cover
		cur.UpdatedAt = c.UpdatedAt
	})
}

func (r *collectionRepo) SetTracks(_ context.Context, id uuid.UUID, trackIDs []uuid.UUID, at time.Time) error {
	return r.mutate(id, func(cur *model.Collection) {
		cur.TrackIDs = slices.Clone(trackIDs)
		cur.UpdatedAt = at
	})
}

func (r *collectionRepo) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.mutate(id, func(cur *model.Collection) { cur.DeletedAt = &at })
}

type playlistRepo struct{ v view }

var _ repository.PlaylistRepository = (*playlistRepo)(nil)

func (s *state) playlistNameTaken(p *model.Playlist) bool {
	for _, o := range s.playlists {
		if o.ID != p.ID && o.DeletedAt == nil && o.OwnerID == p.OwnerID && strings.EqualFold(o.Name, p.Name) {
			return true
		}
	}
	return false
}

func (r *playlistRepo) Create(_ context.Context, p *model.Playlist) error {
	return r.v.do(func(s *state) error {
		if _, ok := s.playlists[p.ID]; ok || s.playlistNameTaken(p) {
			return errs.ErrAlreadyExists
		}
		s.playlists[p.ID] = *p
		s.plOrder = append(s.plOrder, p.ID)
		return nil
	})
}

func (r *playlistRepo) GetByID(_ context.Context, id uuid.UUID, scope repository.Scope) (*model.Playlist, error) {
	var out *model.Playlist
	err := r.v.do(func(s *state) error {
		p, ok := s.playlists[id]
		if !ok || !visible(p.DeletedAt, scope) {
			return errs.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *playlistRepo) List(_ context.Context, q repository.PlaylistQuery) ([]model.Playlist, int, error) {
	var (
		page  []model.Playlist
		total int
	)
	search := strings.ToLower(q.Search)
	err := r.v.do(func(s *state) error {
		var matched []model.Playlist
		for _, id := range s.plOrder {
			p := s.playlists[id]
			if !visible(p.DeletedAt, q.Scope) {
				continue
			}
			if q.Owner != nil && p.OwnerID != *q.Owner {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
				continue
			}
			matched = append(matched, p)
		}
		slices.SortStableFunc(matched, func(a, b model.Playlist) int {
			if q.Desc {
				a, b = b, a
			}
			if q.SortBy == repository.PlaylistByName {
				return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
			}
			return a.CreatedAt.Compare(b.CreatedAt)
		})
		total = len(matched)
		page = window(matched, q.Offset, q.Limit)
		return nil
	})
	return page, total, err
}

func (r *playlistRepo) Update(_ context.Context, p *model.Playlist) error {
	return r.v.do(func(s *state) error {
		cur, ok := s.playlists[p.ID]
		if !ok || cur.DeletedAt != nil {
			return errs.ErrNotFound
		}
		cur.Name, cur.Description, cur.Shared, cur.UpdatedAt = p.Name, p.Description, p.Shared, p.UpdatedAt
		if s.playlistNameTaken(&cur) {
			return errs.ErrAlreadyExists
		}
		s.playlists[p.ID] = cur
		return nil
	})
}

func (r *playlistRepo) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.v.do(func(s *state) error {
		p, ok := s.playlists[id]
		if !ok || p.DeletedAt != nil {
			return errs.ErrNotFound
		}
		p.DeletedAt = &at
		s.playlists[id] = p
		return nil
	})
}
