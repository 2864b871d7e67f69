package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/and161185/tunevault/internal/blobstore"
	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/media"
	"github.com/and161185/tunevault/internal/metrics"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/repository/memory"
	"github.com/and161185/tunevault/internal/service"
)

const bufSize = 1 << 20

// startCatalog serves a memory-backed catalog behind the full interceptor chain.
func startCatalog(t *testing.T) *grpc.ClientConn {
	t.Helper()
	log := zaptest.NewLogger(t)
	db := memory.New()
	st := db.Store()
	rec := metrics.New(prometheus.NewRegistry())
	fp, err := media.NewFingerprinter(media.AlgoSHA256)
	require.NoError(t, err)

	identity := service.NewIdentity(st.Users)
	tracks := service.NewTrackService(st, db, fp, media.ID3Prober{}, blobstore.NewMemory(), rec, log)
	cat := NewCatalog(
		identity,
		tracks,
		service.NewCollectionService(st, db, tracks, rec, log),
		service.NewPlaylistService(st, rec),
		service.NewMembershipService(st, rec),
		service.NewCoordinator(st, db, rec, log),
		service.NewSharingService(st, identity, rec),
	)

	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RecoverUnary(log),
		LoggingUnary(log),
		MetricsUnary(rec),
		AuthUnary(NewAuthenticator(signKey, identity)),
		ErrorsUnary(),
	))
	cat.Register(gs)

	lis := bufconn.Listen(bufSize)
	go func() { _ = gs.Serve(lis) }()
	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close(); gs.Stop(); _ = lis.Close() })
	return cc
}

func tokenFor(t *testing.T, id uuid.UUID) string {
	t.Helper()
	return makeJWT(t, id.String(), signKey, jwt.SigningMethodHS256, time.Now().UTC(), time.Hour)
}

func call[Resp any](t *testing.T, cc *grpc.ClientConn, token, method string, req any) (*Resp, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}
	out := new(Resp)
	err := cc.Invoke(ctx, "/"+CatalogServiceName+"/"+method, req, out, grpc.CallContentSubtype(CodecName))
	return out, err
}

func requireStatus(t *testing.T, err error, c codes.Code, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, c, status.Code(err), err.Error())
	if code != "" {
		require.Equal(t, code, CodeFromStatus(err))
	}
}

// enroll registers a fresh user and returns its id and token.
func enroll(t *testing.T, cc *grpc.ClientConn, name, role string) (uuid.UUID, string) {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	tok := tokenFor(t, id)
	u, err := call[UserReply](t, cc, tok, "Enroll", &EnrollRequest{Username: name, Role: role})
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.Equal(t, role, u.Role)
	return id, tok
}

func TestCatalog_Enroll(t *testing.T) {
	t.Parallel()
	cc := startCatalog(t)

	id, tok := enroll(t, cc, "alice", model.RoleUser)

	_, err := call[UserReply](t, cc, tok, "Enroll", &EnrollRequest{Username: "alice", Role: model.RoleUser})
	requireStatus(t, err, codes.AlreadyExists, errs.CodeUserExists)

	_, err = call[UserReply](t, cc, tokenFor(t, uuid.Must(uuid.NewV4())), "Enroll", &EnrollRequest{Username: "x", Role: "admin"})
	requireStatus(t, err, codes.InvalidArgument, errs.CodeValidationFailed)

	page, err := call[PlaylistPageReply](t, cc, tok, "ListPlaylists", &ListPlaylistsRequest{})
	require.NoError(t, err)
	require.Zero(t, page.Total)
	require.NotEqual(t, uuid.Nil, id)
}

func TestCatalog_Unauthenticated(t *testing.T) {
	t.Parallel()
	cc := startCatalog(t)

	_, err := call[PlaylistPageReply](t, cc, "", "ListPlaylists", &ListPlaylistsRequest{})
	requireStatus(t, err, codes.Unauthenticated, "")

	// a valid token for a subject that never enrolled
	_, err = call[TrackPageReply](t, cc, tokenFor(t, uuid.Must(uuid.NewV4())), "ListTracks", &ListTracksRequest{})
	requireStatus(t, err, codes.Unauthenticated, "")
}

func TestCatalog_TrackOwnership(t *testing.T) {
	t.Parallel()
	cc := startCatalog(t)

	_, listener := enroll(t, cc, "listener", model.RoleUser)
	artist, artistTok := enroll(t, cc, "artist", model.RoleArtist)

	_, err := call[TrackReply](t, cc, listener, "UploadTrack", &UploadTrackRequest{
		Title: "Nope", Genres: []string{"rock"}, Media: []byte("m0"), Cover: []byte("c0"),
	})
	requireStatus(t, err, codes.PermissionDenied, errs.CodeArtistOnly)

	_, err = call[TrackReply](t, cc, artistTok, "UploadTrack", &UploadTrackRequest{Title: "NoCover", Genres: []string{"rock"}, Media: []byte("m")})
	requireStatus(t, err, codes.InvalidArgument, errs.CodeFileMissing)

	tr, err := call[TrackReply](t, cc, artistTok, "UploadTrack", &UploadTrackRequest{
		Title: "Opener", Genres: []string{"Rock"}, Media: []byte("m1"), Cover: []byte("c1"),
	})
	require.NoError(t, err)
	require.Equal(t, artist, tr.OwnerID)
	require.NotEmpty(t, tr.Fingerprint)

	page, err := call[TrackPageReply](t, cc, listener, "ListTracks", &ListTracksRequest{Genre: "ROCK"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, tr.ID, page.Items[0].ID)

	title := "Hijacked"
	_, err = call[TrackReply](t, cc, listener, "UpdateTrack", &UpdateTrackRequest{ID: tr.ID, Title: &title})
	requireStatus(t, err, codes.PermissionDenied, errs.CodeUnauthorized)
	_, err = call[Empty](t, cc, listener, "DeleteTrack", &IDRequest{ID: tr.ID})
	requireStatus(t, err, codes.PermissionDenied, errs.CodeUnauthorized)

	title = "Opener (remaster)"
	up, err := call[TrackReply](t, cc, artistTok, "UpdateTrack", &UpdateTrackRequest{ID: tr.ID, Title: &title})
	require.NoError(t, err)
	require.Equal(t, title, up.Title)

	_, err = call[Empty](t, cc, artistTok, "DeleteTrack", &IDRequest{ID: tr.ID})
	require.NoError(t, err)
	_, err = call[TrackReply](t, cc, artistTok, "GetTrack", &IDRequest{ID: tr.ID})
	requireStatus(t, err, codes.NotFound, errs.CodeSongNotFound)

	hist, err := call[HistoryReply](t, cc, listener, "GetTrackHistory", &IDRequest{ID: tr.ID})
	require.NoError(t, err)
	require.Len(t, hist.Revisions, 1)
	require.Equal(t, "Opener", hist.Revisions[0].Snapshot.Title)
}

func TestCatalog_PlaylistSharing(t *testing.T) {
	t.Parallel()
	cc := startCatalog(t)

	_, ownerTok := enroll(t, cc, "owner", model.RoleArtist)
	friend, friendTok := enroll(t, cc, "friend", model.RoleUser)

	tr, err := call[TrackReply](t, cc, ownerTok, "UploadTrack", &UploadTrackRequest{
		Title: "Side A", Genres: []string{"jazz"}, Media: []byte("a"), Cover: []byte("ca"),
	})
	require.NoError(t, err)
	pl, err := call[PlaylistReply](t, cc, ownerTok, "CreatePlaylist", &CreatePlaylistRequest{Name: "Road trip"})
	require.NoError(t, err)

	_, err = call[PlaylistReply](t, cc, ownerTok, "CreatePlaylist", &CreatePlaylistRequest{Name: "Road trip"})
	requireStatus(t, err, codes.AlreadyExists, errs.CodePlaylistConflict)

	_, err = call[MembershipReply](t, cc, ownerTok, "AddPlaylistTrack", &PlaylistTrackRequest{PlaylistID: pl.ID, TrackID: tr.ID})
	require.NoError(t, err)

	_, err = call[PlaylistReply](t, cc, friendTok, "GetPlaylist", &IDRequest{ID: pl.ID})
	requireStatus(t, err, codes.PermissionDenied, errs.CodeUnauthorized)

	g, err := call[GrantReply](t, cc, ownerTok, "SharePlaylist", &ShareRequest{PlaylistID: pl.ID, UserID: friend})
	require.NoError(t, err)
	require.Equal(t, friend, g.GranteeID)

	got, err := call[PlaylistReply](t, cc, friendTok, "GetPlaylist", &IDRequest{ID: pl.ID})
	require.NoError(t, err)
	require.Equal(t, "Road trip", got.Name)
	items, err := call[TracksReply](t, cc, friendTok, "ListPlaylistTracks", &IDRequest{ID: pl.ID})
	require.NoError(t, err)
	require.Len(t, items.Items, 1)
	shared, err := call[GrantsReply](t, cc, friendTok, "ListSharedWithMe", &Empty{})
	require.NoError(t, err)
	require.Len(t, shared.Items, 1)

	// viewing does not allow editing
	_, err = call[Empty](t, cc, friendTok, "RemovePlaylistTrack", &PlaylistTrackRequest{PlaylistID: pl.ID, TrackID: tr.ID})
	requireStatus(t, err, codes.PermissionDenied, errs.CodeUnauthorized)
	_, err = call[Empty](t, cc, friendTok, "DeletePlaylist", &IDRequest{ID: pl.ID})
	requireStatus(t, err, codes.PermissionDenied, "")

	_, err = call[Empty](t, cc, ownerTok, "DeletePlaylist", &IDRequest{ID: pl.ID})
	require.NoError(t, err)
	_, err = call[PlaylistReply](t, cc, friendTok, "GetPlaylist", &IDRequest{ID: pl.ID})
	requireStatus(t, err, codes.NotFound, errs.CodePlaylistNotFound)
	_, err = call[Empty](t, cc, ownerTok, "DeletePlaylist", &IDRequest{ID: pl.ID})
	requireStatus(t, err, codes.NotFound, errs.CodePlaylistNotFound)
}

func TestCatalog_Collections(t *testing.T) {
	t.Parallel()
	cc := startCatalog(t)

	artist, artistTok := enroll(t, cc, "band", model.RoleArtist)
	_, otherTok := enroll(t, cc, "other", model.RoleUser)

	col, err := call[CollectionReply](t, cc, artistTok, "CreateCollection", &CreateCollectionRequest{
		Title:  "Debut",
		Genres: []string{"indie"},
		Tracks: []CollectionTrack{
			{Title: "One", Media: []byte("1"), Cover: []byte("c1")},
			{Title: "Two", Media: []byte("2"), Cover: []byte("c2")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, artist, col.OwnerID)
	require.Len(t, col.TrackIDs, 2)

	list, err := call[CollectionsReply](t, cc, otherTok, "ListCollections", &ListCollectionsRequest{Owner: &artist})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)

	_, err = call[Empty](t, cc, otherTok, "DeleteCollection", &IDRequest{ID: col.ID})
	requireStatus(t, err, codes.PermissionDenied, errs.CodeUnauthorized)

	_, err = call[Empty](t, cc, artistTok, "DeleteCollection", &IDRequest{ID: col.ID})
	require.NoError(t, err)
	_, err = call[TrackReply](t, cc, artistTok, "GetTrack", &IDRequest{ID: col.TrackIDs[0]})
	requireStatus(t, err, codes.NotFound, errs.CodeSongNotFound)
}

func TestCatalog_MalformedRequest(t *testing.T) {
	t.Parallel()

	for _, m := range catalogDesc.Methods {
		_, err := m.Handler(&Catalog{}, context.Background(), func(any) error { return errors.New("bad json") }, nil)
		require.Equal(t, codes.InvalidArgument, status.Code(err), m.MethodName)
	}
}

func TestCatalog_NoPrincipalWithoutInterceptor(t *testing.T) {
	t.Parallel()

	_, err := (&Catalog{}).ListPlaylists(context.Background(), &ListPlaylistsRequest{})
	require.Equal(t, codes.Unauthenticated, status.Code(err))
}
