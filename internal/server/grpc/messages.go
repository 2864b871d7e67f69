package grpcserver

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/tunevault/internal/model"
)

// Empty is the request or reply of calls that carry no payload.
type Empty struct{}

// IDRequest addresses a single record.
type IDRequest struct {
	ID uuid.UUID `json:"id"`
}

type EnrollRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type UserReply struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type UploadTrackRequest struct {
	Title  string   `json:"title"`
	Genres []string `json:"genres"`
	Media  []byte   `json:"media"`
	Cover  []byte   `json:"cover"`
}

type ListTracksRequest struct {
	Title     string     `json:"title,omitempty"`
	Genre     string     `json:"genre,omitempty"`
	Owner     *uuid.UUID `json:"owner,omitempty"`
	SortBy    string     `json:"sortBy,omitempty"`
	SortOrder string     `json:"sortOrder,omitempty"`
	Page      int        `json:"page,omitempty"`
	PageSize  int        `json:"pageSize,omitempty"`
}

// UpdateTrackRequest carries the editable fields; absent fields keep their values.
type UpdateTrackRequest struct {
	ID          uuid.UUID  `json:"id"`
	Title       *string    `json:"title,omitempty"`
	Genres      []string   `json:"genres,omitempty"`
	ReleaseDate *time.Time `json:"releaseDate,omitempty"`
	Duration    *float64   `json:"duration,omitempty"`
}

type TrackReply struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      uuid.UUID  `json:"ownerId"`
	Title        string     `json:"title"`
	Genres       []string   `json:"genres"`
	ReleaseDate  time.Time  `json:"releaseDate"`
	Duration     float64    `json:"duration"`
	Fingerprint  string     `json:"fingerprint"`
	Location     string     `json:"location"`
	Cover        string     `json:"cover"`
	CollectionID *uuid.UUID `json:"collectionId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type TrackPageReply struct {
	Items    []TrackReply `json:"items"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
}

type TracksReply struct {
	Items []TrackReply `json:"items"`
}

type RevisionReply struct {
	ID         uuid.UUID  `json:"id"`
	ArchivedAt time.Time  `json:"archivedAt"`
	Snapshot   TrackReply `json:"snapshot"`
}

type HistoryReply struct {
	Revisions []RevisionReply `json:"revisions"`
}

type CollectionTrack struct {
	Title  string   `json:"title"`
	Genres []string `json:"genres,omitempty"`
	Media  []byte   `json:"media"`
	Cover  []byte   `json:"cover"`
}

type CreateCollectionRequest struct {
	Title  string            `json:"title"`
	Genres []string          `json:"genres"`
	Cover  string            `json:"cover,omitempty"`
	Tracks []CollectionTrack `json:"tracks"`
}

type ListCollectionsRequest struct {
	Owner *uuid.UUID `json:"owner,omitempty"`
}

type UpdateCollectionRequest struct {
	ID     uuid.UUID `json:"id"`
	Title  *string   `json:"title,omitempty"`
	Genres []string  `json:"genres,omitempty"`
	Cover  *string   `json:"cover,omitempty"`
}

type CollectionReply struct {
	ID          uuid.UUID   `json:"id"`
	OwnerID     uuid.UUID   `json:"ownerId"`
	Title       string      `json:"title"`
	Genres      []string    `json:"genres"`
	ReleaseDate time.Time   `json:"releaseDate"`
	Cover       string      `json:"cover"`
	TrackIDs    []uuid.UUID `json:"trackIds"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type CollectionsReply struct {
	Items []CollectionReply `json:"items"`
}

type CreatePlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Shared      bool   `json:"shared,omitempty"`
}

// ListPlaylistsRequest lists the caller's own playlists.
type ListPlaylistsRequest struct {
	Search    string `json:"search,omitempty"`
	SortBy    string `json:"sortBy,omitempty"`
	SortOrder string `json:"sortOrder,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
}

type UpdatePlaylistRequest struct {
	ID          uuid.UUID `json:"id"`
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Shared      *bool     `json:"shared,omitempty"`
}

type PlaylistReply struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `json:"ownerId"`
	Shared      bool      `json:"shared"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type PlaylistPageReply struct {
	Items    []PlaylistReply `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

type PlaylistTrackRequest struct {
	PlaylistID uuid.UUID `json:"playlistId"`
	TrackID    uuid.UUID `json:"trackId"`
}

type MembershipReply struct {
	ID         uuid.UUID `json:"id"`
	PlaylistID uuid.UUID `json:"playlistId"`
	TrackID    uuid.UUID `json:"trackId"`
	AddedAt    time.Time `json:"addedAt"`
}

type ShareRequest struct {
	PlaylistID uuid.UUID `json:"playlistId"`
	UserID     uuid.UUID `json:"userId"`
}

type GrantReply struct {
	ID         uuid.UUID `json:"id"`
	PlaylistID uuid.UUID `json:"playlistId"`
	GranteeID  uuid.UUID `json:"granteeId"`
	GranterID  uuid.UUID `json:"granterId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type GrantsReply struct {
	Items []GrantReply `json:"items"`
}

func toUserReply(u *model.User) *UserReply {
	return &UserReply{ID: u.ID, Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt}
}

func toTrackReply(t model.Track) TrackReply {
	return TrackReply{
		ID:           t.ID,
		OwnerID:      t.OwnerID,
		Title:        t.Title,
		Genres:       t.Genres,
		ReleaseDate:  t.ReleaseDate,
		Duration:     t.Duration,
		Fingerprint:  t.Fingerprint,
		Location:     t.Location,
		Cover:        t.Cover,
		CollectionID: t.CollectionID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func toTrackReplies(ts []model.Track) []TrackReply {
	out := make([]TrackReply, len(ts))
	for i, t := range ts {
		out[i] = toTrackReply(t)
	}
	return out
}

func toCollectionReply(c model.Collection) CollectionReply {
	return CollectionReply{
		ID:          c.ID,
		OwnerID:     c.OwnerID,
		Title:       c.Title,
		Genres:      c.Genres,
		ReleaseDate: c.ReleaseDate,
		Cover:       c.Cover,
		TrackIDs:    c.TrackIDs,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toPlaylistReply(p model.Playlist) PlaylistReply {
	return PlaylistReply{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		Shared:      p.Shared,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toGrantReply(g model.Grant) GrantReply {
	return GrantReply{ID: g.ID, PlaylistID: g.PlaylistID, GranteeID: g.GranteeID, GranterID: g.GranterID, CreatedAt: g.CreatedAt}
}
