package repository

import (
	"context"
	"time"

	"github.com/and161185/tunevault/internal/model"
	"github.com/gofrs/uuid/v5"
)

// Scope selects which records a read may return. The zero value hides soft-deleted rows.
type Scope uint8

const (
	// Active returns only records without a deletion timestamp.
	Active Scope = iota
	// WithDeleted returns records regardless of deletion state.
	WithDeleted
)

// Sortable track columns.
const (
	TrackByCreatedAt   = "created_at"
	TrackByTitle       = "title"
	TrackByDuration    = "duration"
	TrackByReleaseDate = "release_date"
)

// Sortable playlist columns.
const (
	PlaylistByCreatedAt = "created_at"
	PlaylistByName      = "name"
)

// TrackQuery is a resolved track listing request.
type TrackQuery struct {
	Title  string // case-insensitive substring, empty = any
	Genre  string // exact genre membership, empty = any
	Owner  *uuid.UUID
	SortBy string // one of TrackBy*
	Desc   bool
	Limit  int
	Offset int
	Scope  Scope
}

// PlaylistQuery is a resolved playlist listing request.
type PlaylistQuery struct {
	Owner  *uuid.UUID
	Search string
	SortBy string // one of PlaylistBy*
	Desc   bool
	Limit  int
	Offset int
	Scope  Scope
}

// TrackRepository stores Tracks. The (owner, fingerprint, duration) key is unique among
// active rows; Create and Update report violations as errs.ErrAlreadyExists.
type TrackRepository interface {
	// Create inserts a new track.
	Create(ctx context.Context, t *model.Track) error
	// GetByID loads a track by ID.
	GetByID(ctx context.Context, id uuid.UUID, scope Scope) (*model.Track, error)
	// FindByFingerprint returns the active track with the given content identity.
	FindByFingerprint(ctx context.Context, owner uuid.UUID, fingerprint string, duration float64) (*model.Track, error)
	// FindByTitle returns an active track of the owner with the given title.
	FindByTitle(ctx context.Context, owner uuid.UUID, title string) (*model.Track, error)
	// GetMany returns the active tracks among ids, in no particular order.
	GetMany(ctx context.Context, ids []uuid.UUID) ([]model.Track, error)
	// List returns one page of tracks and the count matching the filters.
	List(ctx context.Context, q TrackQuery) ([]model.Track, int, error)
	// Update overwrites the mutable fields of an active track.
	Update(ctx context.Context, t *model.Track) error
	// SoftDelete stamps an active track as deleted.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
}

// RevisionRepository is the append-only log of track pre-images.
type RevisionRepository interface {
	// Append stores a snapshot.
	Append(ctx context.Context, rev *model.TrackRevision) error
	// ListByTrack returns the snapshots of a track, most recent first.
	ListByTrack(ctx context.Context, trackID uuid.UUID) ([]model.TrackRevision, error)
}

// CollectionRepository stores Collections.
type CollectionRepository interface {
	Create(ctx context.Context, c *model.Collection) error
	GetByID(ctx context.Context, id uuid.UUID, scope Scope) (*model.Collection, error)
	// List returns active collections, all owners when owner is nil.
	List(ctx context.Context, owner *uuid.UUID) ([]model.Collection, error)
	// Update overwrites title, genres and cover of an active collection.
	Update(ctx context.Context, c *model.Collection) error
	// SetTracks replaces the ordered track list of an active collection.
	SetTracks(ctx context.Context, id uuid.UUID, trackIDs []uuid.UUID, at time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
}

// PlaylistRepository stores Playlists. The (owner, lower(name)) key is unique among active rows.
type PlaylistRepository interface {
	Create(ctx context.Context, p *model.Playlist) error
	GetByID(ctx context.Context, id uuid.UUID, scope Scope) (*model.Playlist, error)
	List(ctx context.Context, q PlaylistQuery) ([]model.Playlist, int, error)
	Update(ctx context.Context, p *model.Playlist) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
}

// MembershipRepository stores playlist/track joins. (playlist, track) is unique among active rows.
type MembershipRepository interface {
	Create(ctx context.Context, m *model.Membership) error
	// FindActive returns the active membership of the pair.
	FindActive(ctx context.Context, playlistID, trackID uuid.UUID) (*model.Membership, error)
	// ListByPlaylist returns active memberships ordered by AddedAt ascending.
	ListByPlaylist(ctx context.Context, playlistID uuid.UUID) ([]model.Membership, error)
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	// SoftDeleteByPlaylist stamps every active membership of the playlist and returns the count.
	SoftDeleteByPlaylist(ctx context.Context, playlistID uuid.UUID, at time.Time) (int64, error)
}

// GrantRepository stores sharing grants. (playlist, grantee) is unique among active rows.
type GrantRepository interface {
	Create(ctx context.Context, g *model.Grant) error
	FindActive(ctx context.Context, playlistID, granteeID uuid.UUID) (*model.Grant, error)
	ListByGrantee(ctx context.Context, granteeID uuid.UUID) ([]model.Grant, error)
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	SoftDeleteByPlaylist(ctx context.Context, playlistID uuid.UUID, at time.Time) (int64, error)
}

// Store bundles the repositories of one backend, bound either to the pool or to a transaction.
type Store struct {
	Tracks      TrackRepository
	Revisions   RevisionRepository
	Collections CollectionRepository
	Playlists   PlaylistRepository
	Memberships MembershipRepository
	Grants      GrantRepository
	Users       UserRepository
}

// Transactor runs a unit of work. fn must use the Store it receives; the work commits when
// fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
