// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Roles a principal may carry.
const (
	RoleUser   = "user"
	RoleArtist = "artist"
)

// Principal is the already-authenticated caller.
type Principal struct {
	ID   uuid.UUID
	Role string
}

// User is an account known to the identity collaborator.
type User struct {
	ID        uuid.UUID // PK
	Username  string    // unique
	Role      string    // RoleUser | RoleArtist
	CreatedAt time.Time
}

// Track is a single media item.
type Track struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Title        string
	Genres       []string
	ReleaseDate  time.Time
	Duration     float64 // seconds
	Fingerprint  string  // content digest
	Location     string  // media location reference
	Cover        string  // cover image reference
	CollectionID *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Active reports whether the record is not soft-deleted.
func (t *Track) Active() bool { return t.DeletedAt == nil }

// TrackRevision is an archived pre-update image of a Track.
type TrackRevision struct {
	ID         uuid.UUID
	TrackID    uuid.UUID
	ArchivedAt time.Time
	Snapshot   Track
}

// Collection is an owned, ordered grouping of Tracks (album).
type Collection struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Genres      []string
	ReleaseDate time.Time
	Cover       string
	TrackIDs    []uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Playlist is a user-curated grouping of Tracks.
type Playlist struct {
	ID          uuid.UUID
	Name        string
	Description string
	OwnerID     uuid.UUID
	Shared      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Membership relates a Playlist to a Track.
type Membership struct {
	ID         uuid.UUID
	PlaylistID uuid.UUID
	TrackID    uuid.UUID
	AddedAt    time.Time
	DeletedAt  *time.Time
}

// Grant authorizes a non-owner principal to view a Playlist.
type Grant struct {
	ID         uuid.UUID
	PlaylistID uuid.UUID
	GranteeID  uuid.UUID
	GranterID  uuid.UUID
	CreatedAt  time.Time
	DeletedAt  *time.Time
}
