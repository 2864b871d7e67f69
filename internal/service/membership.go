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

// MembershipService manages which tracks a playlist contains.
type MembershipService interface {
	// AddTrack links an active track to an active playlist.
	AddTrack(ctx context.Context, playlistID, trackID uuid.UUID) (*model.Membership, error)
	// RemoveTrack soft-deletes the active link of the pair.
	RemoveTrack(ctx context.Context, playlistID, trackID uuid.UUID) error
	// ListTracks resolves the active tracks of a playlist in the order they were added.
	ListTracks(ctx context.Context, playlistID uuid.UUID) ([]model.Track, error)
}

type MembershipServiceImpl struct {
	store   repository.Store
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewMembershipService constructs MembershipService.
func NewMembershipService(store repository.Store, rec *metrics.Recorder) *MembershipServiceImpl {
	return &MembershipServiceImpl{store: store, metrics: rec, now: clock}
}

// AddTrack rejects a second active link of the same pair with ADD_SONG_CONFLICT.
func (s *MembershipServiceImpl) AddTrack(ctx context.Context, playlistID, trackID uuid.UUID) (*model.Membership, error) {
	if _, err := activePlaylist(ctx, s.store, playlistID); err != nil {
		return nil, err
	}
	if _, err := s.store.Tracks.GetByID(ctx, trackID, repository.Active); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.NotFound(errs.CodeSongNotFound, "track not found")
		}
		return nil, fmt.Errorf("get track: %w", err)
	}

	_, err := s.store.Memberships.FindActive(ctx, playlistID, trackID)
	switch {
	case err == nil:
		return nil, conflict(s.metrics, errs.CodeAddSongConflict, "track is already in the playlist")
	case !errors.Is(err, errs.ErrNotFound):
		return nil, fmt.Errorf("find membership: %w", err)
	}

	m := &model.Membership{
		ID:         uuid.Must(uuid.NewV4()),
		PlaylistID: playlistID,
		TrackID:    trackID,
		AddedAt:    s.now(),
	}
	if err := s.store.Memberships.Create(ctx, m); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, conflict(s.metrics, errs.CodeAddSongConflict, "track is already in the playlist")
		}
		return nil, fmt.Errorf("create membership: %w", err)
	}
	return m, nil
}

// RemoveTrack fails with MEMBERSHIP_NOT_FOUND when the pair is not linked.
func (s *MembershipServiceImpl) RemoveTrack(ctx context.Context, playlistID, trackID uuid.UUID) error {
	m, err := s.store.Memberships.FindActive(ctx, playlistID, trackID)
	if err == nil {
		err = s.store.Memberships.SoftDelete(ctx, m.ID, s.now())
	}
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.NotFound(errs.CodeMembershipMissing, "track is not in the playlist")
		}
		return fmt.Errorf("remove membership: %w", err)
	}
	return nil
}

// ListTracks skips tracks deleted independently of the playlist. An empty playlist is not an error.
func (s *MembershipServiceImpl) ListTracks(ctx context.Context, playlistID uuid.UUID) ([]model.Track, error) {
	if _, err := activePlaylist(ctx, s.store, playlistID); err != nil {
		return nil, err
	}
	ms, err := s.store.Memberships.ListByPlaylist(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	out := []model.Track{}
	if len(ms) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(ms))
	for i, m := range ms {
		ids[i] = m.TrackID
	}
	found, err := s.store.Tracks.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get tracks: %w", err)
	}
	byID := make(map[uuid.UUID]model.Track, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}
