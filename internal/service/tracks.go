package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/tunevault/internal/blobstore"
	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/metrics"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/repository"
)

// TrackService defines catalog operations over Tracks.
type TrackService interface {
	// CreateTrack persists a track unless an active one has the same (owner, fingerprint, duration).
	CreateTrack(ctx context.Context, in model.NewTrack) (*model.Track, error)
	// UploadTrack ingests raw media and cover bytes for an artist and creates the track.
	UploadTrack(ctx context.Context, p model.Principal, in model.TrackUpload) (*model.Track, error)
	// GetTrack returns an active track.
	GetTrack(ctx context.Context, id uuid.UUID) (*model.Track, error)
	// ListTracks returns one page of active tracks and the total count matching the filter.
	ListTracks(ctx context.Context, f model.TrackFilter) (model.TrackPage, error)
	// UpdateTrack archives the current image and merges the patch over it.
	UpdateTrack(ctx context.Context, id uuid.UUID, patch model.TrackPatch) (*model.Track, error)
	// DeleteTrack soft-deletes an active track.
	DeleteTrack(ctx context.Context, id uuid.UUID) error
	// GetHistory returns the archived images of a track, most recent first.
	GetHistory(ctx context.Context, id uuid.UUID) ([]model.TrackRevision, error)
}

type TrackServiceImpl struct {
	store   repository.Store
	tx      repository.Transactor
	fp      Fingerprinter
	probe   Prober
	blobs   blobstore.Store
	metrics *metrics.Recorder
	log     *zap.Logger
	now     func() time.Time
}

// NewTrackService constructs TrackService with its collaborators.
func NewTrackService(
	store repository.Store,
	tx repository.Transactor,
	fp Fingerprinter,
	probe Prober,
	blobs blobstore.Store,
	rec *metrics.Recorder,
	log *zap.Logger,
) *TrackServiceImpl {
	return &TrackServiceImpl{
		store:   store,
		tx:      tx,
		fp:      fp,
		probe:   probe,
		blobs:   blobs,
		metrics: rec,
		log:     log,
		now:     clock,
	}
}

// bind returns a copy working against the repositories of a running unit of work.
func (s *TrackServiceImpl) bind(st repository.Store) *TrackServiceImpl {
	c := *s
	c.store = st
	return &c
}

var trackSorts = map[string]string{
	model.TrackSortCreatedAt:   repository.TrackByCreatedAt,
	model.TrackSortTitle:       repository.TrackByTitle,
	model.TrackSortDuration:    repository.TrackByDuration,
	model.TrackSortReleaseDate: repository.TrackByReleaseDate,
}

func validDuration(d float64) bool { return d >= 0 && !math.IsNaN(d) && !math.IsInf(d, 0) }

// checkTrackFields validates the fields shared by every way of creating a track.
func checkTrackFields(title string, genres []string) (string, []string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", nil, errs.Validation(errs.CodeValidationFailed, "title is required")
	}
	genres = model.NormalizeGenres(genres)
	if len(genres) == 0 {
		return "", nil, errs.Validation(errs.CodeValidationFailed, "at least one genre is required")
	}
	return title, genres, nil
}

// CreateTrack validates input, runs the advisory duplicate check and inserts the track.
func (s *TrackServiceImpl) CreateTrack(ctx context.Context, in model.NewTrack) (*model.Track, error) {
	if in.Owner == uuid.Nil {
		return nil, errs.Validation(errs.CodeValidationFailed, "owner is required")
	}
	title, genres, err := checkTrackFields(in.Title, in.Genres)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Fingerprint) == "" {
		return nil, errs.Validation(errs.CodeValidationFailed, "fingerprint is required")
	}
	if !validDuration(in.Duration) {
		return nil, errs.Validation(errs.CodeValidationFailed, "duration must be a non-negative number")
	}

	_, err = s.store.Tracks.FindByFingerprint(ctx, in.Owner, in.Fingerprint, in.Duration)
	switch {
	case err == nil:
		return nil, conflict(s.metrics, errs.CodeSongDuplication, "track already uploaded")
	case !errors.Is(err, errs.ErrNotFound):
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}

	now := s.now()
	release := in.ReleaseDate
	if release.IsZero() {
		release = now
	}
	t := &model.Track{
		ID:           uuid.Must(uuid.NewV4()),
		OwnerID:      in.Owner,
		Title:        title,
		Genres:       genres,
		ReleaseDate:  release,
		Duration:     in.Duration,
		Fingerprint:  in.Fingerprint,
		Location:     in.Location,
		Cover:        in.Cover,
		CollectionID: in.CollectionID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Tracks.Create(ctx, t); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, conflict(s.metrics, errs.CodeSongDuplication, "track already uploaded")
		}
		return nil, fmt.Errorf("create track: %w", err)
	}
	return t, nil
}

// UploadTrack is the single-track ingestion path. Only artists may upload.
func (s *TrackServiceImpl) UploadTrack(ctx context.Context, p model.Principal, in model.TrackUpload) (*model.Track, error) {
	if p.Role != model.RoleArtist {
		return nil, errs.Unauthorized(errs.CodeArtistOnly, "only artists can upload tracks")
	}
	if in.Media == nil || in.Cover == nil {
		return nil, errs.Validation(errs.CodeFileMissing, "media and cover files are required")
	}
	if _, _, err := checkTrackFields(in.Title, in.Genres); err != nil {
		return nil, err
	}

	up, err := s.ingest(ctx, in.Media, in.Cover)
	if err != nil {
		return nil, err
	}
	t, err := s.CreateTrack(ctx, model.NewTrack{
		Owner:       p.ID,
		Title:       in.Title,
		Genres:      in.Genres,
		Duration:    up.Duration,
		Fingerprint: up.Fingerprint,
		Location:    up.Location,
		Cover:       up.Cover,
	})
	if err != nil {
		s.discard(ctx, up)
		return nil, err
	}
	return t, nil
}

// GetTrack returns the active track with the given ID.
func (s *TrackServiceImpl) GetTrack(ctx context.Context, id uuid.UUID) (*model.Track, error) {
	t, err := s.store.Tracks.GetByID(ctx, id, repository.Active)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.NotFound(errs.CodeSongNotFound, "track not found")
		}
		return nil, fmt.Errorf("get track: %w", err)
	}
	return t, nil
}

// ListTracks resolves defaults (createdAt desc, page 1, size 10) and queries the store.
func (s *TrackServiceImpl) ListTracks(ctx context.Context, f model.TrackFilter) (model.TrackPage, error) {
	by := f.SortBy
	if by == "" {
		by = model.TrackSortCreatedAt
	}
	col, ok := trackSorts[by]
	if !ok {
		return model.TrackPage{}, errs.Validation(errs.CodeInvalidSort, "unknown sort field "+f.SortBy)
	}
	desc, err := resolveOrder(f.SortOrder)
	if err != nil {
		return model.TrackPage{}, err
	}
	page, size, offset := model.Paging(f.Page, f.PageSize)

	items, total, err := s.store.Tracks.List(ctx, repository.TrackQuery{
		Title:  strings.TrimSpace(f.Title),
		Genre:  strings.TrimSpace(f.Genre),
		Owner:  f.Owner,
		SortBy: col,
		Desc:   desc,
		Limit:  size,
		Offset: offset,
	})
	if err != nil {
		return model.TrackPage{}, fmt.Errorf("list tracks: %w", err)
	}
	if items == nil {
		items = []model.Track{}
	}
	return model.TrackPage{Items: items, Total: total, Page: page, PageSize: size}, nil
}

func checkTrackPatch(p model.TrackPatch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return errs.Validation(errs.CodeValidationFailed, "title cannot be empty")
	}
	if p.Genres != nil && len(model.NormalizeGenres(p.Genres)) == 0 {
		return errs.Validation(errs.CodeValidationFailed, "at least one genre is required")
	}
	if p.Duration != nil && !validDuration(*p.Duration) {
		return errs.Validation(errs.CodeValidationFailed, "duration must be a non-negative number")
	}
	if p.Fingerprint != nil && strings.TrimSpace(*p.Fingerprint) == "" {
		return errs.Validation(errs.CodeValidationFailed, "fingerprint cannot be empty")
	}
	return nil
}

func applyTrackPatch(t *model.Track, p model.TrackPatch) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Genres != nil {
		t.Genres = model.NormalizeGenres(p.Genres)
	}
	if p.ReleaseDate != nil {
		t.ReleaseDate = *p.ReleaseDate
	}
	if p.Duration != nil {
		t.Duration = *p.Duration
	}
	if p.Fingerprint != nil {
		t.Fingerprint = *p.Fingerprint
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
	if p.Cover != nil {
		t.Cover = *p.Cover
	}
}

// UpdateTrack archives the pre-image and applies the patch in one unit of work.
func (s *TrackServiceImpl) UpdateTrack(ctx context.Context, id uuid.UUID, patch model.TrackPatch) (*model.Track, error) {
	if err := checkTrackPatch(patch); err != nil {
		return nil, err
	}

	var out *model.Track
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		cur, err := st.Tracks.GetByID(ctx, id, repository.Active)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.NotFound(errs.CodeSongNotFound, "track not found")
			}
			return fmt.Errorf("get track: %w", err)
		}

		now := s.now()
		rev := &model.TrackRevision{
			ID:         uuid.Must(uuid.NewV4()),
			TrackID:    cur.ID,
			ArchivedAt: now,
			Snapshot:   *cur,
		}
		if err := st.Revisions.Append(ctx, rev); err != nil {
			return fmt.Errorf("archive track: %w", err)
		}

		next := *cur
		applyTrackPatch(&next, patch)
		next.UpdatedAt = now
		if err := st.Tracks.Update(ctx, &next); err != nil {
			switch {
			case errors.Is(err, errs.ErrAlreadyExists):
				return conflict(s.metrics, errs.CodeSongDuplication, "another track has the same content")
			case errors.Is(err, errs.ErrNotFound):
				return errs.NotFound(errs.CodeSongNotFound, "track not found")
			}
			return fmt.Errorf("update track: %w", err)
		}
		out = &next
		return nil
	})
	if err != nil {
		s.metrics.TxAbort("update_track")
		return nil, err
	}
	return out, nil
}

// DeleteTrack soft-deletes an active track; a second call reports NotFound.
func (s *TrackServiceImpl) DeleteTrack(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Tracks.SoftDelete(ctx, id, s.now()); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.NotFound(errs.CodeSongNotFound, "track not found")
		}
		return fmt.Errorf("delete track: %w", err)
	}
	return nil
}

// GetHistory returns archived images, most recent first. Deleted tracks keep their history.
func (s *TrackServiceImpl) GetHistory(ctx context.Context, id uuid.UUID) ([]model.TrackRevision, error) {
	if _, err := s.store.Tracks.GetByID(ctx, id, repository.WithDeleted); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.NotFound(errs.CodeSongNotFound, "track not found")
		}
		return nil, fmt.Errorf("get track: %w", err)
	}
	revs, err := s.store.Revisions.ListByTrack(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	if revs == nil {
		revs = []model.TrackRevision{}
	}
	return revs, nil
}
