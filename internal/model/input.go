package model

import (
	"io"
	"math"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Sort orders.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Track sort fields.
const (
	TrackSortCreatedAt   = "createdAt"
	TrackSortTitle       = "title"
	TrackSortDuration    = "duration"
	TrackSortReleaseDate = "releaseDate"
)

// Playlist sort fields.
const (
	PlaylistSortCreatedAt = "createdAt"
	PlaylistSortName      = "name"
)

// Paging defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*MaxPageSize inside int.
	MaxPage = math.MaxInt / MaxPageSize
)

// NewTrack carries the fields of a Track to be created.
type NewTrack struct {
	Owner        uuid.UUID
	Title        string
	Genres       []string
	ReleaseDate  time.Time
	Duration     float64
	Cover        string
	Location     string
	Fingerprint  string
	CollectionID *uuid.UUID
}

// TrackUpload is a single track upload with raw byte streams.
type TrackUpload struct {
	Title  string
	Genres []string
	Media  io.Reader
	Cover  io.Reader
}

// TrackPatch lists Track fields to overwrite; nil fields keep prior values.
type TrackPatch struct {
	Title       *string
	Genres      []string // nil keeps prior value
	ReleaseDate *time.Time
	Duration    *float64
	Fingerprint *string
	Location    *string
	Cover       *string
}

// TrackFilter selects and pages Tracks. Zero values mean "no filter" / defaults.
type TrackFilter struct {
	Title     string // case-insensitive substring
	Genre     string // genre membership
	Owner     *uuid.UUID
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// TrackPage is one page of Tracks plus the total matched count.
type TrackPage struct {
	Items    []Track
	Total    int
	Page     int
	PageSize int
}

// TrackSpec describes one track of a collection being created.
type TrackSpec struct {
	Title  string
	Genres []string
}

// NewCollection is the input of a collection creation. MediaFiles and CoverFiles are
// positionally aligned with Tracks.
type NewCollection struct {
	Owner      uuid.UUID
	Title      string
	Genres     []string
	Cover      string
	Tracks     []TrackSpec
	MediaFiles []io.Reader
	CoverFiles []io.Reader
}

// CollectionPatch lists Collection fields to overwrite.
type CollectionPatch struct {
	Title  *string
	Genres []string
	Cover  *string
}

// NewPlaylist is the input of a playlist creation.
type NewPlaylist struct {
	Name        string
	Description string
	Shared      bool
}

// PlaylistPatch lists Playlist fields to overwrite.
type PlaylistPatch struct {
	Name        *string
	Description *string
	Shared      *bool
}

// PlaylistFilter selects and pages Playlists.
type PlaylistFilter struct {
	Owner     *uuid.UUID
	Search    string // case-insensitive substring of name
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// PlaylistPage is one page of Playlists plus the total matched count.
type PlaylistPage struct {
	Items    []Playlist
	Total    int
	Page     int
	PageSize int
}

// NormalizeGenres trims, drops empties and de-duplicates genres preserving first-seen order.
func NormalizeGenres(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, g := range in {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		key := strings.ToLower(g)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, g)
	}
	return out
}

// Paging resolves page and size defaults and returns the row offset.
func Paging(page, size int) (p, s, offset int) {
	p, s = page, size
	if p < 1 {
		p = DefaultPage
	}
	if p > MaxPage {
		p = MaxPage
	}
	if s < 1 {
		s = DefaultPageSize
	}
	if s > MaxPageSize {
		s = MaxPageSize
	}
	return p, s, (p - 1) * s
}
