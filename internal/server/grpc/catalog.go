package grpcserver

import (
	"bytes"
	"context"
	"io"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/model"
	"github.com/and161185/tunevault/internal/service"
)

// CatalogServiceName is the full gRPC name of the catalog service.
const CatalogServiceName = "tunevault.v1.Catalog"

// Catalog serves the catalog operations over gRPC. Messages use the "json" codec.
type Catalog struct {
	enroll      service.Enrollment
	tracks      service.TrackService
	collections service.CollectionService
	playlists   service.PlaylistService
	members     service.MembershipService
	deleter     *service.Coordinator
	sharing     service.SharingService
}

// NewCatalog constructs a Catalog.
func NewCatalog(
	enroll service.Enrollment,
	tracks service.TrackService,
	collections service.CollectionService,
	playlists service.PlaylistService,
	members service.MembershipService,
	deleter *service.Coordinator,
	sharing service.SharingService,
) *Catalog {
	return &Catalog{
		enroll:      enroll,
		tracks:      tracks,
		collections: collections,
		playlists:   playlists,
		members:     members,
		deleter:     deleter,
		sharing:     sharing,
	}
}

// Register mounts the catalog service on s.
func (c *Catalog) Register(s *grpc.Server) {
	s.RegisterService(&catalogDesc, c)
}

var catalogDesc = grpc.ServiceDesc{
	ServiceName: CatalogServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary("Enroll", (*Catalog).Enroll),
		unary("UploadTrack", (*Catalog).UploadTrack),
		unary("GetTrack", (*Catalog).GetTrack),
		unary("ListTracks", (*Catalog).ListTracks),
		unary("UpdateTrack", (*Catalog).UpdateTrack),
		unary("DeleteTrack", (*Catalog).DeleteTrack),
		unary("GetTrackHistory", (*Catalog).GetTrackHistory),
		unary("CreateCollection", (*Catalog).CreateCollection),
		unary("GetCollection", (*Catalog).GetCollection),
		unary("ListCollections", (*Catalog).ListCollections),
		unary("UpdateCollection", (*Catalog).UpdateCollection),
		unary("DeleteCollection", (*Catalog).DeleteCollection),
		unary("CreatePlaylist", (*Catalog).CreatePlaylist),
		unary("GetPlaylist", (*Catalog).GetPlaylist),
		unary("ListPlaylists", (*Catalog).ListPlaylists),
		unary("UpdatePlaylist", (*Catalog).UpdatePlaylist),
		unary("DeletePlaylist", (*Catalog).DeletePlaylist),
		unary("AddPlaylistTrack", (*Catalog).AddPlaylistTrack),
		unary("RemovePlaylistTrack", (*Catalog).RemovePlaylistTrack),
		unary("ListPlaylistTracks", (*Catalog).ListPlaylistTracks),
		unary("SharePlaylist", (*Catalog).SharePlaylist),
		unary("RevokeShare", (*Catalog).RevokeShare),
		unary("ListSharedWithMe", (*Catalog).ListSharedWithMe),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tunevault/v1/catalog",
}

func unary[Req, Resp any](name string, call func(*Catalog, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := "/" + CatalogServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, status.Error(codes.InvalidArgument, "malformed request")
			}
			c := srv.(*Catalog)
			if interceptor == nil {
				return call(c, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(c, ctx, req.(*Req))
			})
		},
	}
}

func caller(ctx context.Context) (model.Principal, error) {
	p, ok := PrincipalFromCtx(ctx)
	if !ok {
		return model.Principal{}, status.Error(codes.Unauthenticated, "no auth")
	}
	return p, nil
}

func notOwner() error {
	return errs.Unauthorized(errs.CodeUnauthorized, "only the owner can do that")
}

// reader maps an absent file to nil so the services report it as missing.
func reader(b []byte) io.Reader {
	if len(b) == 0 {
		return nil
	}
	return bytes.NewReader(b)
}

// Enroll registers the token subject as a user.
func (c *Catalog) Enroll(ctx context.Context, in *EnrollRequest) (*UserReply, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	u, err := c.enroll.Enroll(ctx, p.ID, in.Username, in.Role)
	if err != nil {
		return nil, err
	}
	return toUserReply(u), nil
}

func (c *Catalog) UploadTrack(ctx context.Context, in *UploadTrackRequest) (*TrackReply, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	t, err := c.tracks.UploadTrack(ctx, p, model.TrackUpload{
		Title:  in.Title,
		Genres: in.Genres,
		Media:  reader(in.Media),
		Cover:  reader(in.Cover),
	})
	if err != nil {
		return nil, err
	}
	r := toTrackReply(*t)
	return &r, nil
}

func (c *Catalog) GetTrack(ctx context.Context, in *IDRequest) (*TrackReply, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	t, err := c.tracks.GetTrack(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	r := toTrackReply(*t)
	return &r, nil
}

func (c *Catalog) ListTracks(ctx context.Context, in *ListTracksRequest) (*TrackPageReply, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	page, err := c.tracks.ListTracks(ctx, model.TrackFilter{
		Title:     in.Title,
		Genre:     in.Genre,
		Owner:     in.Owner,
		SortBy:    in.SortBy,
		SortOrder: in.SortOrder,
		Page:      in.Page,
		PageSize:  in.PageSize,
	})
	if err != nil {
		return nil, err
	}
	return &TrackPageReply{
		Items:    toTrackReplies(page.Items),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

// ownTrack loads the track and checks the caller owns it.
func (c *Catalog) ownTrack(ctx context.Context, id uuid.UUID) error {
	p, err := caller(ctx)
	if err != nil {
		return err
	}
	t, err := c.tracks.GetTrack(ctx, id)
	if err != nil {
		return err
	}
	if t.OwnerID != p.ID {
		return notOwner()
	}
	return nil
}

func (c *Catalog) UpdateTrack(ctx context.Context, in *UpdateTrackRequest) (*TrackReply, error) {
	if err := c.ownTrack(ctx, in.ID); err != nil {
		return nil, err
	}
	t, err := c.tracks.UpdateTrack(ctx, in.ID, model.TrackPatch{
		Title:       in.Title,
		Genres:      in.Genres,
		ReleaseDate: in.ReleaseDate,
		Duration:    in.Duration,
	})
	if err != nil {
		return nil, err
	}
	r := toTrackReply(*t)
	return &r, nil
}

func (c *Catalog) DeleteTrack(ctx context.Context, in *IDRequest) (*Empty, error) {
	if err := c.ownTrack(ctx, in.ID); err != nil {
		return nil, err
	}
	if err := c.tracks.DeleteTrack(ctx, in.ID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// GetTrackHistory also serves deleted tracks, so it only needs a caller.
func (c *Catalog) GetTrackHistory(ctx context.Context, in *IDRequest) (*HistoryReply, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	revs, err := c.tracks.GetHistory(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	out := make([]RevisionReply, len(revs))
	for i, r := range revs {
		out[i] = RevisionReply{ID: r.ID, ArchivedAt: r.ArchivedAt, Snapshot: toTrackReply(r.Snapshot)}
	}
	return &HistoryReply{Revisions: out}, nil
}

func (c *Catalog) CreateCollection(ctx context.Context, in *CreateCollectionRequest) (*CollectionReply, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	nc := model.NewCollection{
		Owner:      p.ID,
		Title:      in.Title,
		Genres:     in.Genres,
		Cover:      in.Cover,
		Tracks:     make([]model.TrackSpec, len(in.Tracks)),
		MediaFiles: make([]io.Reader, len(in.Tracks)),
		CoverFiles: make([]io.Reader, len(in.Tracks)),
	}
	for i, t := range in.Tracks {
		nc.Tracks[i] = model.TrackSpec{Title: t.Title, Genres: t.Genres}
		nc.MediaFiles[i] = reader(t.Media)
		nc.CoverFiles[i] = reader(t.Cover)
	}
	col, err := c.collections.CreateCollection(ctx, nc)
	if err != nil {
		return nil, err
	}
	r := toCollectionReply(*col)
	return &r, nil
}

func (c *Catalog) GetCollection(ctx context.Context, in *IDRequest) (*CollectionReply, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	col, err := c.collections.GetCollection(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	r := toCollectionReply(*col)
	return &r, nil
}

func (c *Catalog) ListCollections(ctx context.Context, in *ListCollectionsRequest) (*CollectionsReply, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	cols, err := c.collections.ListCollections(ctx, in.Owner)
	if err != nil {
		return nil, err
	}
	out := make([]CollectionReply, len(cols))
	for i, col := range cols {
		out[i] = toCollectionReply(col)
	}
	return &CollectionsReply{Items: out}, nil
}

func (c *Catalog) UpdateCollection(ctx context.Context, in *UpdateCollectionRequest) (*CollectionReply, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	col, err := c.collections.UpdateCollection(ctx, in.ID, model.CollectionPatch{
		Title:  in.Title,
		Genres: in.Genres,
		Cover:  in.Cover,
	}, p.ID)
	if err != nil {
		return nil, err
	}
	r := toCollectionReply(*col)
	return &r, nil
}

func (c *Catalog) DeleteCollection(ctx context.Context, in *IDRequest) (*Empty, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	col, err := c.collections.GetCollection(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if col.OwnerID != p.ID {
		return nil, notOwner()
	}
	if err := c.collections.DeleteCollection(ctx, in.ID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (c *Catalog) CreatePlaylist(ctx context.Context, in *CreatePlaylistRequest) (*PlaylistReply, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	pl, err := c.playlists.CreatePlaylist(ctx, p.ID, model.NewPlaylist{
		Name:        in.Name,
		Description: in.Description,
		Shared:      in.Shared,
	})
	if err != nil {
		return nil, err
	}
	r := toPlaylistReply(*pl)
	return &r, nil
}

// viewable checks the caller owns the playlist or holds a grant on it.
func (c *Catalog) viewable(ctx context.Context, id uuid.UUID) error {
	p, err := caller(ctx)
	if err != nil {
		return err
	}
	ok, err := c.sharing.CanView(ctx, id, p.ID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Unauthorized(errs.CodeUnauthorized, "playlist is not shared with you")
	}
	return nil
}

func (c *Catalog) GetPlaylist(ctx context.Context, in *IDRequest) (*PlaylistReply, error) {
	if err := c.viewable(ctx, in.ID); err != nil {
		return nil, err
	}
	pl, err := c.playlists.GetPlaylist(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	r := toPlaylistReply(*pl)
	return &r, nil
}

func (c *Catalog) ListPlaylists(ctx context.Context, in *ListPlaylistsRequest) (*PlaylistPageReply, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	page, err := c.playlists.ListPlaylists(ctx, model.PlaylistFilter{
		Owner:     &p.ID,
		Search:    in.Search,
		SortBy:    in.SortBy,
		SortOrder: in.SortOrder,
		Page:      in.Page,
		PageSize:  in.PageSize,
	})
	if err != nil {
		return nil, err
	}
	out := make([]PlaylistReply, len(page.Items))
	for i, pl := range page.Items {
		out[i] = toPlaylistReply(pl)
	}
	return &PlaylistPageReply{Items: out, Total: page.Total, Page: page.Page, PageSize: page.PageSize}, nil
}

func (c *Catalog) UpdatePlaylist(ctx context.Context, in *UpdatePlaylistRequest) (*PlaylistReply, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	pl, err := c.playlists.UpdatePlaylist(ctx, in.ID, p.ID, model.PlaylistPatch{
		Name:        in.Name,
		Description: in.Description,
		Shared:      in.Shared,
	})
	if err != nil {
		return nil, err
	}
	r := toPlaylistReply(*pl)
	return &r, nil
}

func (c *Catalog) DeletePlaylist(ctx context.Context, in *IDRequest) (*Empty, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.deleter.DeletePlaylist(ctx, in.ID, p.ID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// ownPlaylist loads the playlist and checks the caller owns it.
func (c *Catalog) ownPlaylist(ctx context.Context, id uuid.UUID) error {
	p, err := caller(ctx)
	if err != nil {
		return err
	}
	pl, err := c.playlists.GetPlaylist(ctx, id)
	if err != nil {
		return err
	}
	if pl.OwnerID != p.ID {
		return notOwner()
	}
	return nil
}

func (c *Catalog) AddPlaylistTrack(ctx context.Context, in *PlaylistTrackRequest) (*MembershipReply, error) {
	if err := c.ownPlaylist(ctx, in.PlaylistID); err != nil {
		return nil, err
	}
	m, err := c.members.AddTrack(ctx, in.PlaylistID, in.TrackID)
	if err != nil {
		return nil, err
	}
	return &MembershipReply{ID: m.ID, PlaylistID: m.PlaylistID, TrackID: m.TrackID, AddedAt: m.AddedAt}, nil
}

func (c *Catalog) RemovePlaylistTrack(ctx context.Context, in *PlaylistTrackRequest) (*Empty, error) {
	if err := c.ownPlaylist(ctx, in.PlaylistID); err != nil {
		return nil, err
	}
	if err := c.members.RemoveTrack(ctx, in.PlaylistID, in.TrackID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (c *Catalog) ListPlaylistTracks(ctx context.Context, in *IDRequest) (*TracksReply, error) {
	if err := c.viewable(ctx, in.ID); err != nil {
		return nil, err
	}
	ts, err := c.members.ListTracks(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	return &TracksReply{Items: toTrackReplies(ts)}, nil
}

func (c *Catalog) SharePlaylist(ctx context.Context, in *ShareRequest) (*GrantReply, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	g, err := c.sharing.Share(ctx, in.PlaylistID, p.ID, in.UserID)
	if err != nil {
		return nil, err
	}
	r := toGrantReply(*g)
	return &r, nil
}

func (c *Catalog) RevokeShare(ctx context.Context, in *ShareRequest) (*Empty, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.sharing.Revoke(ctx, in.PlaylistID, p.ID, in.UserID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (c *Catalog) ListSharedWithMe(ctx context.Context, _ *Empty) (*GrantsReply, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	gs, err := c.sharing.ListGrantsForUser(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	out := make([]GrantReply, len(gs))
	for i, g := range gs {
		out[i] = toGrantReply(g)
	}
	return &GrantsReply{Items: out}, nil
}
