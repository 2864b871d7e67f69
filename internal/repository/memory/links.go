package memory

import (
	"context"
	"time"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/repository"
	"github.com/gofrs/uuid/v5"
)

type membershipRepo struct{ v view }

var _ repository.MembershipRepository = (*membershipRepo)(nil)

func (r *membershipRepo) Create(_ context.Context, m *model.Membership) error {
	return r.v.do(func(s *state) error {
		for _, o := range s.memberships {
			if o.ID == m.ID || (o.DeletedAt == nil && o.PlaylistID == m.PlaylistID && o.TrackID == m.TrackID) {
				return errs.ErrAlreadyExists
			}
		}
		s.memberships = append(s.memberships, *m)
		return nil
	})
}

func (r *membershipRepo) FindActive(_ context.Context, playlistID, trackID uuid.UUID) (*model.Membership, error) {
	var out *model.Membership
	err := r.v.do(func(s *state) error {
		for _, m := range s.memberships {
			if m.DeletedAt == nil && m.PlaylistID == playlistID && m.TrackID == trackID {
				out = &m
				return nil
			}
		}
		return errs.ErrNotFound
	})
	return out, err
}

// ListByPlaylist returns memberships in insertion order, which is AddedAt ascending.
func (r *membershipRepo) ListByPlaylist(_ context.Context, playlistID uuid.UUID) ([]model.Membership, error) {
	var out []model.Membership
	err := r.v.do(func(s *state) error {
		for _, m := range s.memberships {
			if m.DeletedAt == nil && m.PlaylistID == playlistID {
				out = append(out, m)
			}
		}
		return nil
	})
	return out, err
}

func (r *membershipRepo) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.v.do(func(s *state) error {
		for i := range s.memberships {
			if s.memberships[i].ID == id && s.memberships[i].DeletedAt == nil {
				s.memberships[i].DeletedAt = &at
				return nil
			}
		}
		return errs.ErrNotFound
	})
}

func (r *membershipRepo) SoftDeleteByPlaylist(_ context.Context, playlistID uuid.UUID, at time.Time) (int64, error) {
	var n int64
	err := r.v.do(func(s *state) error {
		for i := range s.memberships {
			if s.memberships[i].PlaylistID == playlistID && s.memberships[i].DeletedAt == nil {
				s.memberships[i].DeletedAt = &at
				n++
			}
		}
		return nil
	})
	return n, err
}

type grantRepo struct{ v view }

var _ repository.GrantRepository = (*grantRepo)(nil)

func (r *grantRepo) Create(_ context.Context, g *model.Grant) error {
	return r.v.do(func(s *state) error {
		for _, o := range s.grants {
			if o.ID == g.ID || (o.DeletedAt == nil && o.PlaylistID == g.PlaylistID && o.GranteeID == g.GranteeID) {
				return errs.ErrAlreadyExists
			}
		}
		s.grants = append(s.grants, *g)
		return nil
	})
}

func (r *grantRepo) FindActive(_ context.Context, playlistID, granteeID uuid.UUID) (*model.Grant, error) {
	var out *model.Grant
	err := r.v.do(func(s *state) error {
		for _, g := range s.grants {
			if g.DeletedAt == nil && g.PlaylistID == playlistID && g.GranteeID == granteeID {
				out = &g
				return nil
			}
		}
		return errs.ErrNotFound
	})
	return out, err
}

func (r *grantRepo) ListByGrantee(_ context.Context, granteeID uuid.UUID) ([]model.Grant, error) {
	var out []model.Grant
	err := r.v.do(func(s *state) error {
		for i := len(s.grants) - 1; i >= 0; i-- {
			if g := s.grants[i]; g.DeletedAt == nil && g.GranteeID == granteeID {
				out = append(out, g)
			}
		}
		return nil
	})
	return out, err
}

func (r *grantRepo) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.v.do(func(s *state) error {
		for i := range s.grants {
			if s.grants[i].ID == id && s.grants[i].DeletedAt == nil {
				s.grants[i].DeletedAt = &at
				return nil
			}
		}
		return errs.ErrNotFound
	})
}

func (r *grantRepo) SoftDeleteByPlaylist(_ context.Context, playlistID uuid.UUID, at time.Time) (int64, error) {
	var n int64
	err := r.v.do(func(s *state) error {
		for i := range s.grants {
			if s.grants[i].PlaylistID == playlistID && s.grants[i].DeletedAt == nil {
				s.grants[i].DeletedAt = &at
				n++
			}
		}
		return nil
	})
	return n, err
}

type userRepo struct{ v view }

var _ repository.UserRepository = (*userRepo)(nil)

func (r *userRepo) Create(_ context.Context, u *model.User) error {
	return r.v.do(func(s *state) error {
		for _, o := range s.users {
			if o.ID == u.ID || o.Username == u.Username {
				return errs.ErrAlreadyExists
			}
		}
		s.users[u.ID] = *u
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	var out *model.User
	err := r.v.do(func(s *state) error {
		u, ok := s.users[id]
		if !ok {
			return errs.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}
