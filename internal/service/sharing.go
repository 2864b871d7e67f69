package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/metrics"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/repository"
)

// SharingService grants and checks cross-user visibility of playlists.
type SharingService interface {
	// Share lets grantee view the playlist. Only the owner may share.
	Share(ctx context.Context, playlistID, granterID, granteeID uuid.UUID) (*model.Grant, error)
	// ListGrantsForUser returns the active grants held by grantee.
	ListGrantsForUser(ctx context.Context, granteeID uuid.UUID) ([]model.Grant, error)
	// Revoke withdraws an active grant. Only the owner may revoke.
	Revoke(ctx context.Context, playlistID, granterID, granteeID uuid.UUID) error
	// CanView reports whether principal owns or has been granted the playlist.
	CanView(ctx context.Context, playlistID, principalID uuid.UUID) (bool, error)
}

type SharingServiceImpl struct {
	store    repository.Store
	identity Identity
	metrics  *metrics.Recorder
	now      func() time.Time
}

// NewSharingService constructs SharingService.
func NewSharingService(store repository.Store, identity Identity, rec *metrics.Recorder) *SharingServiceImpl {
	return &SharingServiceImpl{store: store, identity: identity, metrics: rec, now: clock}
}

func (s *SharingServiceImpl) ownedPlaylist(ctx context.Context, playlistID, granterID uuid.UUID) (*model.Playlist, error) {
	p, err := activePlaylist(ctx, s.store, playlistID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != granterID {
		return nil, errs.Unauthorized(errs.CodeUnauthorized, "only the owner can manage sharing")
	}
	return p, nil
}

// Share checks, in order: playlist, ownership, self-share, existing grant, grantee identity.
func (s *SharingServiceImpl) Share(ctx context.Context, playlistID, granterID, granteeID uuid.UUID) (*model.Grant, error) {
	p, err := s.ownedPlaylist(ctx, playlistID, granterID)
	if err != nil {
		return nil, err
	}
	if granteeID == p.OwnerID {
		return nil, errs.Validation(errs.CodeConflictUsers, "a playlist cannot be shared with its owner")
	}
	_, err = s.store.Grants.FindActive(ctx, playlistID, granteeID)
	switch {
	case err == nil:
		return nil, conflict(s.metrics, errs.CodeAlreadyShared, "playlist is already shared with this user")
	case !errors.Is(err, errs.ErrNotFound):
		return nil, fmt.Errorf("find grant: %w", err)
	}
	if _, err := s.identity.Lookup(ctx, granteeID); err != nil {
		return nil, err
	}

	g := &model.Grant{
		ID:         uuid.Must(uuid.NewV4()),
		PlaylistID: playlistID,
		GranteeID:  granteeID,
		GranterID:  granterID,
		CreatedAt:  s.now(),
	}
	if err := s.store.Grants.Create(ctx, g); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, conflict(s.metrics, errs.CodeAlreadyShared, "playlist is already shared with this user")
		}
		return nil, fmt.Errorf("create grant: %w", err)
	}
	return g, nil
}

func (s *SharingServiceImpl) ListGrantsForUser(ctx context.Context, granteeID uuid.UUID) ([]model.Grant, error) {
	gs, err := s.store.Grants.ListByGrantee(ctx, granteeID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	if gs == nil {
		gs = []model.Grant{}
	}
	return gs, nil
}

func (s *SharingServiceImpl) Revoke(ctx context.Context, playlistID, granterID, granteeID uuid.UUID) error {
	if _, err := s.ownedPlaylist(ctx, playlistID, granterID); err != nil {
		return err
	}
	g, err := s.store.Grants.FindActive(ctx, playlistID, granteeID)
	if err == nil {
		err = s.store.Grants.SoftDelete(ctx, g.ID, s.now())
	}
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.NotFound(errs.CodeGrantNotFound, "grant not found")
		}
		return fmt.Errorf("revoke grant: %w", err)
	}
	return nil
}

func (s *SharingServiceImpl) CanView(ctx context.Context, playlistID, principalID uuid.UUID) (bool, error) {
	p, err := activePlaylist(ctx, s.store, playlistID)
	if err != nil {
		return false, err
	}
	if p.OwnerID == principalID {
		return true, nil
	}
	if _, err := s.store.Grants.FindActive(ctx, playlistID, principalID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("find grant: %w", err)
	}
	return true, nil
}
