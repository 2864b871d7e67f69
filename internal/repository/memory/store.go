// Package memory is an in-process implementation of the repository interfaces.
// It enforces the same uniqueness rules as the PostgreSQL schema and is used by
// the dev server mode and by service tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/repository"
	"github.com/gofrs/uuid/v5"
)

type state struct {
	users       map[uuid.UUID]model.User
	tracks      map[uuid.UUID]model.Track
	trackOrder  []uuid.UUID
	revisions   []model.TrackRevision
	collections map[uuid.UUID]model.Collection
	collOrder   []uuid.UUID
	playlists   map[uuid.UUID]model.Playlist
	plOrder     []uuid.UUID
	memberships []model.Membership
	grants      []model.Grant
}

func newState() *state {
	return &state{
		users:       map[uuid.UUID]model.User{},
		tracks:      map[uuid.UUID]model.Track{},
		collections: map[uuid.UUID]model.Collection{},
		playlists:   map[uuid.UUID]model.Playlist{},
	}
}

func (s *state) clone() *state {
	return &state{
		users:       maps.Clone(s.users),
		tracks:      maps.Clone(s.tracks),
		trackOrder:  slices.Clone(s.trackOrder),
		revisions:   slices.Clone(s.revisions),
		collections: maps.Clone(s.collections),
		collOrder:   slices.Clone(s.collOrder),
		playlists:   maps.Clone(s.playlists),
		plOrder:     slices.Clone(s.plOrder),
		memberships: slices.Clone(s.memberships),
		grants:      slices.Clone(s.grants),
	}
}

// DB holds the whole catalog in memory behind a single mutex.
type DB struct {
	mu sync.Mutex
	st *state
}

// New returns an empty in-memory database.
func New() *DB { return &DB{st: newState()} }

// Store returns repositories that lock the database per call.
func (db *DB) Store() repository.Store { return storeOn(view{db: db}) }

// WithinTx runs fn against a private copy of the state and publishes it when fn succeeds.
// Units of work are serialized.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := db.st.clone()
	if err := fn(ctx, storeOn(view{tx: work})); err != nil {
		return err
	}
	db.st = work
	return nil
}

var _ repository.Transactor = (*DB)(nil)

// view routes repository calls either to the locked shared state or to a transaction copy.
type view struct {
	db *DB
	tx *state
}

func (v view) do(fn func(s *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	return fn(v.db.st)
}

func storeOn(v view) repository.Store {
	return repository.Store{
		Tracks:      &trackRepo{v},
		Revisions:   &revisionRepo{v},
		Collections: &collectionRepo{v},
		Playlists:   &playlistRepo{v},
		Memberships: &membershipRepo{v},
		Grants:      &grantRepo{v},
		Users:       &userRepo{v},
	}
}
