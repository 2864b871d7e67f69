package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/metrics"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/repository"
)

// Playlist field limits.
const (
	PlaylistNameMin        = 3
	PlaylistNameMax        = 100
	PlaylistDescriptionMax = 300
)

// PlaylistService defines operations over playlists themselves. Deletion lives in Coordinator.
type PlaylistService interface {
	CreatePlaylist(ctx context.Context, owner uuid.UUID, in model.NewPlaylist) (*model.Playlist, error)
	GetPlaylist(ctx context.Context, id uuid.UUID) (*model.Playlist, error)
	ListPlaylists(ctx context.Context, f model.PlaylistFilter) (model.PlaylistPage, error)
	// UpdatePlaylist merges the patch for the owning requester; renames re-check uniqueness.
	UpdatePlaylist(ctx context.Context, id, requester uuid.UUID, patch model.PlaylistPatch) (*model.Playlist, error)
}

type PlaylistServiceImpl struct {
	store   repository.Store
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewPlaylistService constructs PlaylistService.
func NewPlaylistService(store repository.Store, rec *metrics.Recorder) *PlaylistServiceImpl {
	return &PlaylistServiceImpl{store: store, metrics: rec, now: clock}
}

var playlistSorts = map[string]string{
	model.PlaylistSortCreatedAt: repository.PlaylistByCreatedAt,
	model.PlaylistSortName:      repository.PlaylistByName,
}

func checkPlaylistName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < PlaylistNameMin || n > PlaylistNameMax {
		return "", errs.Validation(errs.CodeValidationFailed,
			fmt.Sprintf("name must be %d to %d characters", PlaylistNameMin, PlaylistNameMax))
	}
	return name, nil
}

func checkPlaylistDescription(d string) (string, error) {
	d = strings.TrimSpace(d)
	if utf8.RuneCountInString(d) > PlaylistDescriptionMax {
		return "", errs.Validation(errs.CodeValidationFailed,
			fmt.Sprintf("description must be at most %d characters", PlaylistDescriptionMax))
	}
	return d, nil
}

// CreatePlaylist stores a new playlist; names are unique per owner, case-insensitively.
func (s *PlaylistServiceImpl) CreatePlaylist(ctx context.Context, owner uuid.UUID, in model.NewPlaylist) (*model.Playlist, error) {
	if owner == uuid.Nil {
		return nil, errs.Validation(errs.CodeValidationFailed, "owner is required")
	}
	name, err := checkPlaylistName(in.Name)
	if err != nil {
		return nil, err
	}
	desc, err := checkPlaylistDescription(in.Description)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &model.Playlist{
		ID:          uuid.Must(uuid.NewV4()),
		Name:        name,
		Description: desc,
		OwnerID:     owner,
		Shared:      in.Shared,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Playlists.Create(ctx, p); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, conflict(s.metrics, errs.CodePlaylistConflict, "a playlist named "+name+" already exists")
		}
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	return p, nil
}

// GetPlaylist returns an active playlist.
func (s *PlaylistServiceImpl) GetPlaylist(ctx context.Context, id uuid.UUID) (*model.Playlist, error) {
	return activePlaylist(ctx, s.store, id)
}

func activePlaylist(ctx context.Context, st repository.Store, id uuid.UUID) (*model.Playlist, error) {
	p, err := st.Playlists.GetByID(ctx, id, repository.Active)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.NotFound(errs.CodePlaylistNotFound, "playlist not found")
		}
		return nil, fmt.Errorf("get playlist: %w", err)
	}
	return p, nil
}

// ListPlaylists resolves defaults (createdAt desc, page 1, size 10) and queries the store.
func (s *PlaylistServiceImpl) ListPlaylists(ctx context.Context, f model.PlaylistFilter) (model.PlaylistPage, error) {
	by := f.SortBy
	if by == "" {
		by = model.PlaylistSortCreatedAt
	}
	col, ok := playlistSorts[by]
	if !ok {
		return model.PlaylistPage{}, errs.Validation(errs.CodeInvalidSort, "unknown sort field "+f.SortBy)
	}
	desc, err := resolveOrder(f.SortOrder)
	if err != nil {
		return model.PlaylistPage{}, err
	}
	page, size, offset := model.Paging(f.Page, f.PageSize)

	items, total, err := s.store.Playlists.List(ctx, repository.PlaylistQuery{
		Owner:  f.Owner,
		Search: strings.TrimSpace(f.Search),
		SortBy: col,
		Desc:   desc,
		Limit:  size,
		Offset: offset,
	})
	if err != nil {
		return model.PlaylistPage{}, fmt.Errorf("list playlists: %w", err)
	}
	if items == nil {
		items = []model.Playlist{}
	}
	return model.PlaylistPage{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// UpdatePlaylist applies name, description and shared flag changes.
func (s *PlaylistServiceImpl) UpdatePlaylist(ctx context.Context, id, requester uuid.UUID, patch model.PlaylistPatch) (*model.Playlist, error) {
	p, err := s.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != requester {
		return nil, errs.Unauthorized(errs.CodeUnauthorized, "only the owner can update a playlist")
	}
	if patch.Name != nil {
		if p.Name, err = checkPlaylistName(*patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		if p.Description, err = checkPlaylistDescription(*patch.Description); err != nil {
			return nil, err
		}
	}
	if patch.Shared != nil {
		p.Shared = *patch.Shared
	}
	p.UpdatedAt = s.now()

	if err := s.store.Playlists.Update(ctx, p); err != nil {
		switch {
		case errors.Is(err, errs.ErrAlreadyExists):
			return nil, conflict(s.metrics, errs.CodePlaylistConflict, "a playlist named "+p.Name+" already exists")
		case errors.Is(err, errs.ErrNotFound):
			return nil, errs.NotFound(errs.CodePlaylistNotFound, "playlist not found")
		}
		return nil, fmt.Errorf("update playlist: %w", err)
	}
	return p, nil
}
