package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/metrics"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/repository"
)

// CollectionService creates and maintains Collections together with their Tracks.
type CollectionService interface {
	// CreateCollection ingests every track spec and stores the collection with its tracks.
	CreateCollection(ctx context.Context, in model.NewCollection) (*model.Collection, error)
	GetCollection(ctx context.Context, id uuid.UUID) (*model.Collection, error)
	// ListCollections lists active collections of owner, or of everyone when owner is nil.
	ListCollections(ctx context.Context, owner *uuid.UUID) ([]model.Collection, error)
	// UpdateCollection merges the patch for the owning requester.
	UpdateCollection(ctx context.Context, id uuid.UUID, patch model.CollectionPatch, requester uuid.UUID) (*model.Collection, error)
	// DeleteCollection soft-deletes the collection and every track it lists.
	DeleteCollection(ctx context.Context, id uuid.UUID) error
}

type CollectionServiceImpl struct {
	store   repository.Store
	tx      repository.Transactor
	tracks  *TrackServiceImpl
	metrics *metrics.Recorder
	log     *zap.Logger
	now     func() time.Time
}

// NewCollectionService constructs CollectionService. Tracks are created and deleted through tracks.
func NewCollectionService(
	store repository.Store,
	tx repository.Transactor,
	tracks *TrackServiceImpl,
	rec *metrics.Recorder,
	log *zap.Logger,
) *CollectionServiceImpl {
	return &CollectionServiceImpl{store: store, tx: tx, tracks: tracks, metrics: rec, log: log, now: clock}
}

func checkCollectionInput(in model.NewCollection) error {
	if len(in.Tracks) == 0 {
		return errs.Validation(errs.CodeSongsRequired, "at least one track is required")
	}
	if len(in.MediaFiles) != len(in.Tracks) || len(in.CoverFiles) != len(in.Tracks) {
		return errs.Validation(errs.CodeSongFileMismatch,
			fmt.Sprintf("%d tracks need %d media and cover files, got %d and %d",
				len(in.Tracks), len(in.Tracks), len(in.MediaFiles), len(in.CoverFiles)))
	}
	for i := range in.Tracks {
		if in.MediaFiles[i] == nil || in.CoverFiles[i] == nil {
			return errs.Validation(errs.CodeFileMissing, fmt.Sprintf("track %d: media and cover files are required", i+1))
		}
	}
	if in.Owner == uuid.Nil {
		return errs.Validation(errs.CodeValidationFailed, "owner is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return errs.Validation(errs.CodeValidationFailed, "title is required")
	}
	if len(model.NormalizeGenres(in.Genres)) == 0 {
		return errs.Validation(errs.CodeValidationFailed, "at least one genre is required")
	}
	return nil
}

// CreateCollection validates the batch, ingests each track, then stores the collection and
// its tracks in one unit of work. Uploaded blobs are removed if anything fails.
func (s *CollectionServiceImpl) CreateCollection(ctx context.Context, in model.NewCollection) (*model.Collection, error) {
	if err := checkCollectionInput(in); err != nil {
		return nil, err
	}
	genres := model.NormalizeGenres(in.Genres)

	specs := make([]model.TrackSpec, len(in.Tracks))
	for i, ts := range in.Tracks {
		g := ts.Genres
		if len(model.NormalizeGenres(g)) == 0 {
			g = genres
		}
		title, g, err := checkTrackFields(ts.Title, g)
		if err != nil {
			return nil, err
		}
		specs[i] = model.TrackSpec{Title: title, Genres: g}
	}

	ups := make([]ingested, 0, len(specs))
	fail := func(err error) (*model.Collection, error) {
		s.tracks.discard(ctx, ups...)
		return nil, err
	}
	for i, ts := range specs {
		up, err := s.tracks.read(in.MediaFiles[i], in.CoverFiles[i])
		if err != nil {
			return fail(err)
		}
		_, err = s.store.Tracks.FindByTitle(ctx, in.Owner, ts.Title)
		switch {
		case err == nil:
			return fail(conflict(s.metrics, errs.CodeSongAlreadyExist, "track "+ts.Title+" already exists"))
		case !errors.Is(err, errs.ErrNotFound):
			return fail(fmt.Errorf("find by title: %w", err))
		}
		if err := s.tracks.upload(ctx, &up); err != nil {
			return fail(err)
		}
		ups = append(ups, up)
	}

	now := s.now()
	c := &model.Collection{
		ID:          uuid.Must(uuid.NewV4()),
		OwnerID:     in.Owner,
		Title:       strings.TrimSpace(in.Title),
		Genres:      genres,
		ReleaseDate: now,
		Cover:       in.Cover,
		TrackIDs:    []uuid.UUID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		if err := st.Collections.Create(ctx, c); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		tracks := s.tracks.bind(st)
		ids := make([]uuid.UUID, 0, len(specs))
		for i, ts := range specs {
			t, err := tracks.CreateTrack(ctx, model.NewTrack{
				Owner:        in.Owner,
				Title:        ts.Title,
				Genres:       ts.Genres,
				ReleaseDate:  now,
				Duration:     ups[i].Duration,
				Fingerprint:  ups[i].Fingerprint,
				Location:     ups[i].Location,
				Cover:        ups[i].Cover,
				CollectionID: &c.ID,
			})
			if err != nil {
				return err
			}
			ids = append(ids, t.ID)
		}
		if err := st.Collections.SetTracks(ctx, c.ID, ids, now); err != nil {
			return fmt.Errorf("set collection tracks: %w", err)
		}
		c.TrackIDs = ids
		return nil
	})
	if err != nil {
		s.metrics.TxAbort("create_collection")
		return fail(err)
	}
	return c, nil
}

// GetCollection returns an active collection.
func (s *CollectionServiceImpl) GetCollection(ctx context.Context, id uuid.UUID) (*model.Collection, error) {
	c, err := s.store.Collections.GetByID(ctx, id, repository.Active)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.NotFound(errs.CodeAlbumNotFound, "collection not found")
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return c, nil
}

// ListCollections returns active collections, newest first.
func (s *CollectionServiceImpl) ListCollections(ctx context.Context, owner *uuid.UUID) ([]model.Collection, error) {
	out, err := s.store.Collections.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	if out == nil {
		out = []model.Collection{}
	}
	return out, nil
}

// UpdateCollection merges title, genres and cover over the stored collection.
func (s *CollectionServiceImpl) UpdateCollection(ctx context.Context, id uuid.UUID, patch model.CollectionPatch, requester uuid.UUID) (*model.Collection, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, errs.Validation(errs.CodeValidationFailed, "title cannot be empty")
	}
	if patch.Genres != nil && len(model.NormalizeGenres(patch.Genres)) == 0 {
		return nil, errs.Validation(errs.CodeValidationFailed, "at least one genre is required")
	}

	c, err := s.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != requester {
		return nil, errs.Unauthorized(errs.CodeUnauthorized, "only the owner can update a collection")
	}
	if patch.Title != nil {
		c.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Genres != nil {
		c.Genres = model.NormalizeGenres(patch.Genres)
	}
	if patch.Cover != nil {
		c.Cover = *patch.Cover
	}
	c.UpdatedAt = s.now()
	if err := s.store.Collections.Update(ctx, c); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.NotFound(errs.CodeAlbumNotFound, "collection not found")
		}
		return nil, fmt.Errorf("update collection: %w", err)
	}
	return c, nil
}

// DeleteCollection removes the listed tracks and then the collection in one unit of work.
// Tracks already deleted on their own are skipped.
func (s *CollectionServiceImpl) DeleteCollection(ctx context.Context, id uuid.UUID) error {
	c, err := s.GetCollection(ctx, id)
	if err != nil {
		return err
	}

	var removed int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		tracks := s.tracks.bind(st)
		for _, tid := range c.TrackIDs {
			if err := tracks.DeleteTrack(ctx, tid); err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					continue
				}
				return err
			}
			removed++
		}
		if err := st.Collections.SoftDelete(ctx, c.ID, s.now()); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.NotFound(errs.CodeAlbumNotFound, "collection not found")
			}
			return err
		}
		return nil
	})
	if errs.CodeOf(err) == errs.CodeAlbumNotFound {
		return err
	}
	if err != nil {
		s.metrics.TxAbort("delete_collection")
		s.log.Error("collection delete aborted", zap.String("collection", c.ID.String()), zap.Error(err))
		return errs.Wrap(errs.ErrDeletionFailed, errs.CodeAlbumDeletion, "collection could not be deleted", err)
	}
	s.metrics.Cascade("track", removed)
	return nil
}
