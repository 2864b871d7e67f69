package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/tunevault/internal/blobstore"
	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/media"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/repository"
	"github.com/and161185/tunevault/internal/repository/memory"
)

// fakeProber returns a duration per media payload, or fails for unknown payloads.
type fakeProber struct{ durations map[string]float64 }

var _ Prober = (*fakeProber)(nil)

func (f *fakeProber) ProbeDuration(r io.ReadSeeker) (float64, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	d, ok := f.durations[string(b)]
	if !ok {
		return 0, errors.New("no tag")
	}
	return d, nil
}

// stepClock hands out strictly increasing instants.
type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type env struct {
	db          *memory.DB
	blobs       *blobstore.Memory
	prober      *fakeProber
	tracks      *TrackServiceImpl
	collections *CollectionServiceImpl
	playlists   *PlaylistServiceImpl
	members     *MembershipServiceImpl
	coord       *Coordinator
	sharing     *SharingServiceImpl
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := memory.New()
	st := db.Store()
	blobs := blobstore.NewMemory()
	fp, err := media.NewFingerprinter(media.AlgoSHA256)
	require.NoError(t, err)
	prober := &fakeProber{durations: map[string]float64{}}
	log := zaptest.NewLogger(t)
	clk := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	e := &env{db: db, blobs: blobs, prober: prober}
	e.tracks = NewTrackService(st, db, fp, prober, blobs, nil, log)
	e.tracks.now = clk.now
	e.collections = NewCollectionService(st, db, e.tracks, nil, log)
	e.collections.now = clk.now
	e.playlists = NewPlaylistService(st, nil)
	e.playlists.now = clk.now
	e.members = NewMembershipService(st, nil)
	e.members.now = clk.now
	e.coord = NewCoordinator(st, db, nil, log)
	e.coord.now = clk.now
	e.sharing = NewSharingService(st, NewIdentity(st.Users), nil)
	e.sharing.now = clk.now
	return e
}

func (e *env) user(t *testing.T, role string) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	require.NoError(t, e.db.Store().Users.Create(context.Background(), &model.User{
		ID: id, Username: id.String(), Role: role,
	}))
	return id
}

func (e *env) track(t *testing.T, owner uuid.UUID, title string) *model.Track {
	t.Helper()
	tr, err := e.tracks.CreateTrack(context.Background(), model.NewTrack{
		Owner: owner, Title: title, Genres: []string{"pop"}, Duration: 120,
		Fingerprint: "fp-" + title, Location: "mem://" + title,
	})
	require.NoError(t, err)
	return tr
}

func requireCode(t *testing.T, err error, kind error, code string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	require.Equal(t, code, errs.CodeOf(err))
}

func readers(payloads ...string) []io.Reader {
	out := make([]io.Reader, len(payloads))
	for i, p := range payloads {
		out[i] = strings.NewReader(p)
	}
	return out
}

// failingTx runs the unit of work against the real store with one repository swapped out.
type failingTx struct {
	inner repository.Transactor
	patch func(s *repository.Store)
}

func (f failingTx) WithinTx(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) error {
	return f.inner.WithinTx(ctx, func(ctx context.Context, s repository.Store) error {
		f.patch(&s)
		return fn(ctx, s)
	})
}
